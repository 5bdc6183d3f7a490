package spells

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// catalogSource yields one catalog payload per load. Name is used in error
// messages only.
type catalogSource interface {
	Bytes() ([]byte, error)
	Name() string
}

type fileSource struct {
	path string
}

func (f fileSource) Bytes() ([]byte, error) { return os.ReadFile(f.path) }

func (f fileSource) Name() string { return f.path }

// Entry is the resolved, validated form of one catalog document. Lookups
// hand out clones so callers can mutate freely.
type Entry struct {
	Document
}

func (e Entry) clone() Entry {
	out := e
	out.Projectile = clonePtr(e.Projectile)
	out.Burst = clonePtr(e.Burst)
	out.Patch = clonePtr(e.Patch)
	out.Pulse = clonePtr(e.Pulse)
	out.Aura = clonePtr(e.Aura)
	out.Emitter = clonePtr(e.Emitter)
	out.Charge = clonePtr(e.Charge)
	out.Scatter = clonePtr(e.Scatter)
	out.Stacks = clonePtr(e.Stacks)
	out.Statuses = append([]StatusSpec(nil), e.Statuses...)
	out.Cleanses = append([]string(nil), e.Cleanses...)
	return out
}

func clonePtr[T any](src *T) *T {
	if src == nil {
		return nil
	}
	copied := *src
	return &copied
}

// Resolver folds the embedded catalog and any overlay files into one lookup
// table. Call Reload to pick up on-disk changes during development.
type Resolver struct {
	mu      sync.RWMutex
	sources []catalogSource
	idx     registryIndex
	entries map[string]Entry
}

// DefaultPaths returns the canonical catalog overlay locations relative to
// the server module root. The embedded catalog always loads first.
func DefaultPaths() []string {
	return []string{
		filepath.Join("config", "spells", "catalog.json"),
		filepath.Join("..", "config", "spells", "catalog.json"),
	}
}

// Load constructs a Resolver from the embedded catalog plus any overlay
// files found at the provided paths. Missing overlays are skipped.
func Load(reg Registry, paths ...string) (*Resolver, error) {
	sources := []catalogSource{embeddedCatalog()}
	for _, path := range paths {
		if p := strings.TrimSpace(path); p != "" {
			sources = append(sources, fileSource{path: p})
		}
	}
	return NewResolver(reg, sources...)
}

// NewResolver constructs a Resolver from arbitrary sources. Tests supply
// in-memory sources; production code goes through Load.
func NewResolver(reg Registry, sources ...catalogSource) (*Resolver, error) {
	idx, err := reg.Index()
	if err != nil {
		return nil, fmt.Errorf("spells: invalid registry: %w", err)
	}
	r := &Resolver{
		sources: append([]catalogSource(nil), sources...),
		idx:     idx,
		entries: make(map[string]Entry),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all catalog sources. Later sources override earlier ones
// so a local overlay can retune embedded spells without replacing them.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	next := make(map[string]Entry)
	for _, src := range r.sources {
		data, err := src.Bytes()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("spells: failed loading %s: %w", src.Name(), err)
		}
		documents, err := decodeCatalog(data)
		if err != nil {
			return fmt.Errorf("spells: failed parsing %s: %w", src.Name(), err)
		}
		seen := make(map[string]struct{}, len(documents))
		for _, doc := range documents {
			id := strings.TrimSpace(doc.ID)
			if id == "" {
				return fmt.Errorf("spells: entry missing id in %s", src.Name())
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("spells: duplicate id %q in %s", id, src.Name())
			}
			seen[id] = struct{}{}
			doc.ID = id

			normalizeDocument(&doc)
			if err := validateDocument(&doc, r.idx); err != nil {
				return err
			}
			next[id] = Entry{Document: doc}.clone()
		}
	}

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
	return nil
}

// Resolve returns the catalog entry for the provided spell id.
func (r *Resolver) Resolve(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// IDs returns the loaded spell ids in ascending order.
func (r *Resolver) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns a cloned snapshot keyed by spell id.
func (r *Resolver) Entries() map[string]Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string]Entry, len(r.entries))
	for id, e := range r.entries {
		snapshot[id] = e.clone()
	}
	return snapshot
}

// normalizeDocument fills the defaults validation assumes: burst damage
// lands mid-expansion and pulse casts produce a single instance unless the
// entry says otherwise.
func normalizeDocument(doc *Document) {
	if doc.Burst != nil && doc.Burst.DamageAppliedAt == 0 {
		doc.Burst.DamageAppliedAt = 0.5
	}
	if doc.Pulse != nil {
		if doc.Pulse.InstancesMin == 0 && doc.Pulse.InstancesMax == 0 {
			doc.Pulse.InstancesMin = 1
			doc.Pulse.InstancesMax = 1
		}
	}
}

func validateDocument(doc *Document, idx registryIndex) error {
	if _, ok := idx.elements[doc.Element]; !ok {
		return fmt.Errorf("spells: entry %q references unknown element %q", doc.ID, doc.Element)
	}
	if _, ok := idx.deliveries[doc.Delivery]; !ok {
		return fmt.Errorf("spells: entry %q references unknown delivery %q", doc.ID, doc.Delivery)
	}
	if doc.BaseDamage < 0 {
		return fmt.Errorf("spells: entry %q has negative base damage", doc.ID)
	}
	if doc.Cooldown < 0 {
		return fmt.Errorf("spells: entry %q has negative cooldown", doc.ID)
	}

	switch doc.Delivery {
	case DeliveryProjectile:
		if err := validateProjectile(doc); err != nil {
			return err
		}
	case DeliveryBurst:
		if err := validateBurst(doc, doc.Burst); err != nil {
			return err
		}
	case DeliveryPatch:
		if err := validatePatch(doc, doc.Patch); err != nil {
			return err
		}
	case DeliveryPulse:
		if err := validatePulse(doc); err != nil {
			return err
		}
	case DeliveryAura:
		if err := validateAura(doc, idx); err != nil {
			return err
		}
	case DeliveryEmitter:
		if err := validateEmitter(doc); err != nil {
			return err
		}
	case DeliveryPassive:
		if err := validatePassive(doc); err != nil {
			return err
		}
	}

	for _, status := range doc.Statuses {
		if _, ok := idx.statuses[status.Kind]; !ok {
			return fmt.Errorf("spells: entry %q references unknown status %q", doc.ID, status.Kind)
		}
		if status.Duration < 0 || status.Magnitude < 0 || status.DamageFraction < 0 {
			return fmt.Errorf("spells: entry %q status %q has negative numbers", doc.ID, status.Kind)
		}
	}
	if doc.Stacks != nil {
		if _, ok := idx.statuses[doc.Stacks.Status]; !ok {
			return fmt.Errorf("spells: entry %q references unknown status %q", doc.ID, doc.Stacks.Status)
		}
		if doc.Stacks.Count <= 0 {
			return fmt.Errorf("spells: entry %q stack count must be positive", doc.ID)
		}
	}
	for _, kind := range doc.Cleanses {
		if _, ok := idx.statuses[kind]; !ok {
			return fmt.Errorf("spells: entry %q cleanses unknown status %q", doc.ID, kind)
		}
	}
	return nil
}

func validateProjectile(doc *Document) error {
	spec := doc.Projectile
	if spec == nil {
		return fmt.Errorf("spells: entry %q is missing its projectile block", doc.ID)
	}
	if spec.Speed <= 0 || spec.Lifetime <= 0 || spec.CollisionRadius <= 0 {
		return fmt.Errorf("spells: entry %q projectile numbers must be positive", doc.ID)
	}
	if spec.Lifesteal < 0 || spec.Lifesteal > 1 {
		return fmt.Errorf("spells: entry %q lifesteal must be within [0, 1]", doc.ID)
	}
	switch spec.OnEnd {
	case OnEndNone:
	case OnEndBurst:
		if err := validateBurst(doc, doc.Burst); err != nil {
			return err
		}
	case OnEndScatter:
		if err := validatePatch(doc, doc.Patch); err != nil {
			return err
		}
		if doc.Scatter == nil {
			return fmt.Errorf("spells: entry %q is missing its scatter block", doc.ID)
		}
		if doc.Scatter.Min < 1 || doc.Scatter.Max < doc.Scatter.Min {
			return fmt.Errorf("spells: entry %q scatter counts are invalid", doc.ID)
		}
		if doc.Scatter.Spread <= 0 {
			return fmt.Errorf("spells: entry %q scatter spread must be positive", doc.ID)
		}
	default:
		return fmt.Errorf("spells: entry %q has unknown onEnd %q", doc.ID, spec.OnEnd)
	}
	return nil
}

func validateBurst(doc *Document, spec *BurstSpec) error {
	if spec == nil {
		return fmt.Errorf("spells: entry %q is missing its burst block", doc.ID)
	}
	if spec.Radius <= 0 || spec.Duration <= 0 {
		return fmt.Errorf("spells: entry %q burst numbers must be positive", doc.ID)
	}
	if spec.DamageAppliedAt <= 0 || spec.DamageAppliedAt > 1 {
		return fmt.Errorf("spells: entry %q burst damage point must be in (0, 1]", doc.ID)
	}
	return nil
}

func validatePatch(doc *Document, spec *PatchSpec) error {
	if spec == nil {
		return fmt.Errorf("spells: entry %q is missing its patch block", doc.ID)
	}
	if spec.Radius <= 0 || spec.Lifetime <= 0 || spec.TickInterval <= 0 {
		return fmt.Errorf("spells: entry %q patch numbers must be positive", doc.ID)
	}
	if spec.DamageFraction < 0 {
		return fmt.Errorf("spells: entry %q patch damage fraction must not be negative", doc.ID)
	}
	return nil
}

func validatePulse(doc *Document) error {
	spec := doc.Pulse
	if spec == nil {
		return fmt.Errorf("spells: entry %q is missing its pulse block", doc.ID)
	}
	if spec.Radius <= 0 || spec.Interval <= 0 || spec.Duration <= 0 {
		return fmt.Errorf("spells: entry %q pulse numbers must be positive", doc.ID)
	}
	if spec.Anchor != AnchorPoint && spec.Anchor != AnchorCaster {
		return fmt.Errorf("spells: entry %q has unknown pulse anchor %q", doc.ID, spec.Anchor)
	}
	if spec.MaxTargets < 0 || spec.Lifesteal < 0 || spec.Lifesteal > 1 {
		return fmt.Errorf("spells: entry %q pulse targeting numbers are invalid", doc.ID)
	}
	if spec.DamageScaleMax < spec.DamageScaleMin {
		return fmt.Errorf("spells: entry %q pulse damage scale range is inverted", doc.ID)
	}
	if spec.RoamRange > 0 && spec.RoamInterval <= 0 {
		return fmt.Errorf("spells: entry %q roaming pulse needs a positive roam interval", doc.ID)
	}
	if spec.InstancesMin < 1 || spec.InstancesMax < spec.InstancesMin {
		return fmt.Errorf("spells: entry %q pulse instance counts are invalid", doc.ID)
	}
	return nil
}

func validateAura(doc *Document, idx registryIndex) error {
	spec := doc.Aura
	if spec == nil {
		return fmt.Errorf("spells: entry %q is missing its aura block", doc.ID)
	}
	if spec.Radius <= 0 || spec.Duration <= 0 {
		return fmt.Errorf("spells: entry %q aura numbers must be positive", doc.ID)
	}
	if _, ok := idx.statuses[spec.Status]; !ok {
		return fmt.Errorf("spells: entry %q references unknown status %q", doc.ID, spec.Status)
	}
	return nil
}

func validateEmitter(doc *Document) error {
	spec := doc.Emitter
	if spec == nil {
		return fmt.Errorf("spells: entry %q is missing its emitter block", doc.ID)
	}
	if spec.Interval <= 0 && spec.SpawnDistance <= 0 {
		return fmt.Errorf("spells: entry %q emitter needs a positive interval or spawn distance", doc.ID)
	}
	if spec.Interval < 0 || spec.SpawnDistance < 0 || spec.Duration <= 0 {
		return fmt.Errorf("spells: entry %q emitter numbers must be positive", doc.ID)
	}
	if err := validatePatch(doc, doc.Patch); err != nil {
		return err
	}
	return nil
}

func validatePassive(doc *Document) error {
	hasCharge := doc.Charge != nil
	hasRider := doc.Stacks != nil && doc.Stacks.Rider
	if !hasCharge && !hasRider {
		return fmt.Errorf("spells: entry %q passive needs a charge block or a rider stack block", doc.ID)
	}
	if hasCharge {
		if doc.Charge.Max <= 0 || doc.Charge.PerUnitInput <= 0 {
			return fmt.Errorf("spells: entry %q charge numbers must be positive", doc.ID)
		}
		if doc.Charge.DamageScale < 0 {
			return fmt.Errorf("spells: entry %q charge damage scale must not be negative", doc.ID)
		}
		if err := validateBurst(doc, doc.Burst); err != nil {
			return err
		}
	}
	return nil
}

func decodeCatalog(data []byte) ([]Document, error) {
	body := bytes.TrimSpace(data)
	if len(body) == 0 {
		return nil, nil
	}
	switch body[0] {
	case '[':
		var documents []Document
		if err := json.Unmarshal(body, &documents); err != nil {
			return nil, err
		}
		return documents, nil
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(body, &keyed); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(keyed))
		for id := range keyed {
			keys = append(keys, id)
		}
		sort.Strings(keys)
		documents := make([]Document, 0, len(keys))
		for _, id := range keys {
			var doc Document
			if err := json.Unmarshal(keyed[id], &doc); err != nil {
				return nil, fmt.Errorf("entry %q: %w", id, err)
			}
			if doc.ID == "" {
				doc.ID = id
			} else if doc.ID != id {
				return nil, fmt.Errorf("entry id %q does not match key %q", doc.ID, id)
			}
			documents = append(documents, doc)
		}
		return documents, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(body[:1]))
	}
}
