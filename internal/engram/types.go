package engram

import (
	"errors"
)

// Status is the stored lifecycle status of an engram.
type Status string

const (
	StatusCandidate Status = "candidate"
	StatusActive    Status = "active"
	StatusDormant   Status = "dormant"
	StatusRetired   Status = "retired"
)

// Kind classifies what an engram describes. Stored under the "type" key.
type Kind string

const (
	KindBehavioral     Kind = "behavioral"
	KindTerminological Kind = "terminological"
	KindProcedural     Kind = "procedural"
	KindArchitectural  Kind = "architectural"
)

// Visibility gates whether an engram may leave the personal store.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityTemplate Visibility = "template"
)

// Exportable reports whether the visibility allows pack export.
func (v Visibility) Exportable() bool {
	return v == VisibilityPublic || v == VisibilityTemplate
}

// Signal is an explicit feedback signal.
type Signal string

const (
	SignalPositive Signal = "positive"
	SignalNegative Signal = "negative"
	SignalNeutral  Signal = "neutral"
)

// InjectionPolicy controls whether a pack takes part in automatic injection.
type InjectionPolicy string

const (
	PolicyOnMatch   InjectionPolicy = "on_match"
	PolicyOnRequest InjectionPolicy = "on_request"
)

// Errors returned by lifecycle operations.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyActive  = errors.New("already active")
	ErrPromoteRetired = errors.New("cannot promote retired")
	ErrAlreadyRetired = errors.New("already retired")
	ErrInvalidSignal  = errors.New("invalid feedback signal")
	ErrEmptyStatement = errors.New("statement cannot be empty")
	ErrNoTargets      = errors.New("at least one engram ID required")
	ErrAmbiguous      = errors.New("multiple engrams match")
	ErrInvalidRecord  = errors.New("invalid record")
)

// Engram is the atomic unit of stored knowledge.
type Engram struct {
	ID                string     `yaml:"id" json:"id" validate:"required,engram_id"`
	Version           int        `yaml:"version" json:"version" validate:"gte=1"`
	Status            Status     `yaml:"status" json:"status" validate:"oneof=active dormant retired candidate"`
	Consolidated      bool       `yaml:"consolidated" json:"consolidated"`
	Type              Kind       `yaml:"type" json:"type" validate:"oneof=behavioral terminological procedural architectural"`
	Scope             string     `yaml:"scope" json:"scope"`
	Visibility        Visibility `yaml:"visibility" json:"visibility" validate:"oneof=private public template"`
	Statement         string     `yaml:"statement" json:"statement" validate:"required"`
	Rationale         string     `yaml:"rationale,omitempty" json:"rationale,omitempty"`
	Contraindications []string   `yaml:"contraindications,omitempty" json:"contraindications,omitempty"`
	SourcePatterns    []string   `yaml:"source_patterns,omitempty" json:"source_patterns,omitempty"`
	DerivationCount   int        `yaml:"derivation_count" json:"derivation_count" validate:"gte=0"`

	KnowledgeType *KnowledgeType `yaml:"knowledge_type,omitempty" json:"knowledge_type,omitempty"`
	Domain        string         `yaml:"domain,omitempty" json:"domain,omitempty"`
	Relations     *Relations     `yaml:"relations,omitempty" json:"relations,omitempty"`
	Activation    Activation     `yaml:"activation" json:"activation"`
	Provenance    *Provenance    `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	Feedback      *Feedback      `yaml:"feedback_signals,omitempty" json:"feedback_signals,omitempty"`
	Tags          []string       `yaml:"tags" json:"tags"`
	Pack          *string        `yaml:"pack" json:"pack"`
	Abstract      *string        `yaml:"abstract" json:"abstract"`
	DerivedFrom   *string        `yaml:"derived_from" json:"derived_from"`
}

// Activation is the decay-relevant state of an engram.
type Activation struct {
	RetrievalStrength float64 `yaml:"retrieval_strength" json:"retrieval_strength" validate:"gte=0,lte=1"`
	StorageStrength   float64 `yaml:"storage_strength" json:"storage_strength" validate:"gte=0,lte=1"`
	Frequency         int     `yaml:"frequency" json:"frequency" validate:"gte=0"`
	LastAccessed      string  `yaml:"last_accessed" json:"last_accessed"`
}

// KnowledgeType is the optional cognitive classification.
type KnowledgeType struct {
	MemoryClass    string `yaml:"memory_class" json:"memory_class" validate:"oneof=semantic episodic procedural metacognitive"`
	CognitiveLevel string `yaml:"cognitive_level" json:"cognitive_level" validate:"oneof=remember understand apply analyze evaluate create"`
}

// Relations links an engram to others by ID.
type Relations struct {
	Broader   []string `yaml:"broader" json:"broader"`
	Narrower  []string `yaml:"narrower" json:"narrower"`
	Related   []string `yaml:"related" json:"related"`
	Conflicts []string `yaml:"conflicts" json:"conflicts"`
}

// Provenance records where an engram came from.
type Provenance struct {
	Origin    string   `yaml:"origin" json:"origin"`
	Chain     []string `yaml:"chain" json:"chain"`
	Signature *string  `yaml:"signature" json:"signature"`
	License   string   `yaml:"license" json:"license"`
}

// Feedback holds accumulated explicit signals.
type Feedback struct {
	Positive int `yaml:"positive" json:"positive"`
	Negative int `yaml:"negative" json:"negative"`
	Neutral  int `yaml:"neutral" json:"neutral"`
}

// Net returns positive minus negative.
func (f *Feedback) Net() int {
	if f == nil {
		return 0
	}
	return f.Positive - f.Negative
}

// IsPersonal reports whether the engram was authored locally.
func (e *Engram) IsPersonal() bool {
	return e.Pack == nil || *e.Pack == ""
}

// PackID returns the owning pack identifier or "".
func (e *Engram) PackID() string {
	if e.Pack == nil {
		return ""
	}
	return *e.Pack
}

// Manifest is the SKILL.md frontmatter of a pack.
type Manifest struct {
	Name        string    `yaml:"name" json:"name" validate:"required"`
	Description string    `yaml:"description" json:"description"`
	Version     string    `yaml:"version" json:"version" validate:"required"`
	Creator     string    `yaml:"creator,omitempty" json:"creator,omitempty"`
	License     string    `yaml:"license,omitempty" json:"license,omitempty"`
	Tags        []string  `yaml:"tags" json:"tags"`
	Datacore    Extension `yaml:"x-datacore" json:"x-datacore"`
}

// Extension is the x-datacore block of a pack manifest.
type Extension struct {
	ID              string          `yaml:"id" json:"id" validate:"required"`
	InjectionPolicy InjectionPolicy `yaml:"injection_policy" json:"injection_policy" validate:"oneof=on_match on_request"`
	MatchTerms      []string        `yaml:"match_terms" json:"match_terms"`
	Domain          string          `yaml:"domain,omitempty" json:"domain,omitempty"`
	EngramCount     int             `yaml:"engram_count" json:"engram_count" validate:"gte=0"`
}

// Pack is an installed bundle of engrams loaded from storage.
type Pack struct {
	Manifest Manifest
	Engrams  []*Engram
	// Repo persists this pack's engram list.
	Repo Repository
}

// ID returns the pack identifier from the manifest.
func (p *Pack) ID() string {
	return p.Manifest.Datacore.ID
}
