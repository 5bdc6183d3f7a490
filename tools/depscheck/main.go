package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// The server packages layer one way: internal/app wires internal/net, which
// wires the root simulation package. The root package and the shared
// libraries under it must never reach back into internal/.
const forbiddenPrefix = "spellstorm/server/internal/"

var checkedPatterns = []string{
	"spellstorm/server",
	"spellstorm/server/spells",
	"spellstorm/server/stats",
	"spellstorm/server/logging/...",
}

type packageInfo struct {
	ImportPath string
	Imports    []string
}

func main() {
	violations, err := scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
		os.Exit(1)
	}
	if len(violations) == 0 {
		return
	}
	sort.Strings(violations)
	fmt.Fprintln(os.Stderr, "depscheck: forbidden imports:")
	for _, violation := range violations {
		fmt.Fprintf(os.Stderr, "  %s\n", violation)
	}
	os.Exit(1)
}

func scan() ([]string, error) {
	cmd := exec.Command("go", append([]string{"list", "-json"}, checkedPatterns...)...)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Stderr.Write(exitErr.Stderr)
		}
		return nil, fmt.Errorf("list packages: %w", err)
	}

	var violations []string
	decoder := json.NewDecoder(bytes.NewReader(output))
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return violations, nil
			}
			return nil, fmt.Errorf("decode package info: %w", err)
		}
		for _, imp := range pkg.Imports {
			if strings.HasPrefix(imp, forbiddenPrefix) {
				violations = append(violations, pkg.ImportPath+" imports "+imp)
			}
		}
	}
}
