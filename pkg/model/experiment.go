package model

import "strings"

// Level identifies a depth of the configuration hierarchy.
type Level string

const (
	LevelApplication Level = "application"
	LevelWorkload    Level = "workload"
	LevelExperiment  Level = "experiment"
)

// Levels lists the hierarchy from shallowest to deepest.
var Levels = []Level{LevelApplication, LevelWorkload, LevelExperiment}

// OutputCapture selects which streams of an executable are redirected.
type OutputCapture string

const (
	OutputStdout  OutputCapture = "STDOUT"
	OutputStderr  OutputCapture = "STDERR"
	OutputAll     OutputCapture = "ALL"
	OutputDefault OutputCapture = "DEFAULT"
)

// OutputCaptures lists the accepted output_capture values.
var OutputCaptures = []OutputCapture{OutputStdout, OutputStderr, OutputAll, OutputDefault}

// ChainOrder places a chained experiment relative to its parent's command.
type ChainOrder string

const (
	ChainBefore ChainOrder = "before"
	ChainAfter  ChainOrder = "after"
)

// EnvVarModification is one append/prepend action.
type EnvVarModification struct {
	Separator string `json:"var-separator,omitempty"`
	Vars      *Map   `json:"vars,omitempty"`
	Paths     *Map   `json:"paths,omitempty"`
}

// EnvVarActions are the declared environment-variable actions of a node.
// Executing them is the runner's job; here they are only merged.
type EnvVarActions struct {
	Set     *Map                 `json:"set,omitempty"`
	Unset   []string             `json:"unset,omitempty"`
	Append  []EnvVarModification `json:"append,omitempty"`
	Prepend []EnvVarModification `json:"prepend,omitempty"`
}

// Empty reports whether no action is declared.
func (a EnvVarActions) Empty() bool {
	return a.Set.Len() == 0 && len(a.Unset) == 0 && len(a.Append) == 0 && len(a.Prepend) == 0
}

// SuccessCriterion declares one check evaluated against experiment output.
type SuccessCriterion struct {
	Name  string `json:"name"`
	Mode  string `json:"mode"`
	Match string `json:"match,omitempty"`
	File  string `json:"file,omitempty"`
}

// CustomExecutable is a user-declared command line.
type CustomExecutable struct {
	Name          string        `json:"name"`
	Template      []string      `json:"template"`
	UseMPI        bool          `json:"use_mpi"`
	Redirect      string        `json:"redirect"`
	OutputCapture OutputCapture `json:"output_capture"`
}

// Internals groups custom executables and the ordered list of executables to run.
type Internals struct {
	CustomExecutables []CustomExecutable `json:"custom_executables,omitempty"`
	Executables       []string           `json:"executables,omitempty"`
}

// Executable returns the custom executable with the given name.
func (in Internals) Executable(name string) (CustomExecutable, bool) {
	for _, ce := range in.CustomExecutables {
		if ce.Name == name {
			return ce, true
		}
	}
	return CustomExecutable{}, false
}

// ChainedExperiment is a declared chain entry on a node.
type ChainedExperiment struct {
	Name      string     `json:"name"`
	Command   string     `json:"command,omitempty"`
	Order     ChainOrder `json:"order,omitempty"`
	Variables *Map       `json:"variables,omitempty"`
}

// ModifierRef applies a modifier (and optionally a mode) to a node.
type ModifierRef struct {
	Name          string   `json:"name"`
	Mode          string   `json:"mode,omitempty"`
	OnExecutables []string `json:"on_executable,omitempty"`
}

// AxisDecl is one matrix axis as declared on an experiment.
// Bare references produce one axis per variable with Key equal to the
// variable name; named matrices produce one axis per key.
type AxisDecl struct {
	Key  string   `json:"key"`
	Vars []string `json:"vars"`
	Path string   `json:"-"`
}

// ConfigNode is one application, workload or experiment as declared, or
// the merged result for a leaf experiment.
type ConfigNode struct {
	Level           Level               `json:"level"`
	Name            string              `json:"name"`
	Variables       *Map                `json:"variables"`
	EnvVars         EnvVarActions       `json:"env_vars"`
	SuccessCriteria []SuccessCriterion  `json:"success_criteria,omitempty"`
	Internals       Internals           `json:"internals"`
	Chained         []ChainedExperiment `json:"chained_experiments,omitempty"`
	Modifiers       []ModifierRef       `json:"modifiers,omitempty"`
	Template        bool                `json:"template"`
	Axes            []AxisDecl          `json:"axes,omitempty"`
}

// Leaf is a fully merged experiment before matrix expansion.
type Leaf struct {
	Application string     `json:"application"`
	Workload    string     `json:"workload"`
	Experiment  string     `json:"experiment"`
	Node        ConfigNode `json:"node"`
}

// QualifiedName returns "application.workload.experiment".
func (l *Leaf) QualifiedName() string {
	return QualifiedName(l.Application, l.Workload, l.Experiment)
}

// QualifiedName joins hierarchy names with dots.
func QualifiedName(parts ...string) string {
	return strings.Join(parts, ".")
}

// AxisBinding records which point of an axis an instance was built from.
type AxisBinding struct {
	Key      string `json:"key"`
	Position int    `json:"position"`
	Values   *Map   `json:"values"`
}

// ChainedInvocation is a resolved chain entry attached to an instance.
type ChainedInvocation struct {
	Experiment string              `json:"experiment"`
	Command    string              `json:"command"`
	Order      ChainOrder          `json:"order"`
	Variables  *Map                `json:"variables"`
	Chain      []ChainedInvocation `json:"chain,omitempty"`
}

// ModifierBinding records a modifier and the mode chosen for an instance.
type ModifierBinding struct {
	Name          string   `json:"name"`
	Mode          string   `json:"mode"`
	OnExecutables []string `json:"on_executable,omitempty"`
}

// ExperimentInstance is one concrete, fully resolved experiment.
type ExperimentInstance struct {
	ID              string              `json:"id"`
	Index           int                 `json:"index"`
	Application     string              `json:"application"`
	Workload        string              `json:"workload"`
	Experiment      string              `json:"experiment"`
	Name            string              `json:"name"`
	Variables       *Map                `json:"variables"`
	Axes            []AxisBinding       `json:"axes,omitempty"`
	EnvVars         EnvVarActions       `json:"env_vars"`
	SuccessCriteria []SuccessCriterion  `json:"success_criteria,omitempty"`
	Internals       Internals           `json:"internals"`
	Chain           []ChainedInvocation `json:"chain,omitempty"`
	Modifiers       []ModifierBinding   `json:"modifiers,omitempty"`
}

// QualifiedName returns the dotted name of the leaf the instance came from.
func (i *ExperimentInstance) QualifiedName() string {
	return QualifiedName(i.Application, i.Workload, i.Experiment)
}

// Clone returns a deep copy of the actions.
func (a EnvVarActions) Clone() EnvVarActions {
	out := EnvVarActions{Unset: append([]string(nil), a.Unset...)}
	if a.Set != nil {
		out.Set = a.Set.Clone()
	}
	for _, m := range a.Append {
		out.Append = append(out.Append, m.clone())
	}
	for _, m := range a.Prepend {
		out.Prepend = append(out.Prepend, m.clone())
	}
	return out
}

func (m EnvVarModification) clone() EnvVarModification {
	out := EnvVarModification{Separator: m.Separator}
	if m.Vars != nil {
		out.Vars = m.Vars.Clone()
	}
	if m.Paths != nil {
		out.Paths = m.Paths.Clone()
	}
	return out
}

// Clone returns a deep copy of the internals.
func (in Internals) Clone() Internals {
	out := Internals{Executables: append([]string(nil), in.Executables...)}
	for _, ce := range in.CustomExecutables {
		ce.Template = append([]string(nil), ce.Template...)
		out.CustomExecutables = append(out.CustomExecutables, ce)
	}
	return out
}
