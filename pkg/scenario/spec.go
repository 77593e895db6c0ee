package scenario

import (
	"bytes"
	"fmt"
	"maps"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Spec is a declarative scenario: the initial variables of an agent and the goal tree
// it has to solve.
type Spec struct {
	Name   string         `json:"name" mapstructure:"name" validate:"required"`
	Budget *float64       `json:"budget,omitempty" mapstructure:"budget" validate:"omitempty,gte=0"`
	Vars   map[string]any `json:"vars,omitempty" mapstructure:"vars"`
	Goal   NodeSpec       `json:"goal" mapstructure:"goal"`

	Environment *EnvironmentSpec `json:"environment,omitempty" mapstructure:"environment"`
}

// EnvironmentSpec declares the external commands that send actions may run.
type EnvironmentSpec struct {
	// Refresh names a command run at the start of every tick.
	Refresh  string        `json:"refresh,omitempty" mapstructure:"refresh"`
	Reset    string        `json:"reset,omitempty" mapstructure:"reset"`
	Commands []CommandSpec `json:"commands" mapstructure:"commands" validate:"required,min=1,dive"`
}

// CommandSpec is one allow-listed command.
type CommandSpec struct {
	Name        string            `json:"name" mapstructure:"name" validate:"required"`
	Command     string            `json:"command" mapstructure:"command" validate:"required"`
	Args        []string          `json:"args,omitempty" mapstructure:"args"`
	Env         map[string]string `json:"env,omitempty" mapstructure:"env"`
	Description string            `json:"description,omitempty" mapstructure:"description"`
}

// NodeSpec describes one goal-tree node. Exactly one of the kind fields must be set:
// seq, first_of, repeat, while, if, check, succeed, fail or goal.
type NodeSpec struct {
	Name   string   `json:"name,omitempty" mapstructure:"name"`
	Budget *float64 `json:"budget,omitempty" mapstructure:"budget" validate:"omitempty,gt=0"`

	Seq     []NodeSpec `json:"seq,omitempty" mapstructure:"seq" validate:"omitempty,dive"`
	FirstOf []NodeSpec `json:"first_of,omitempty" mapstructure:"first_of" validate:"omitempty,dive"`
	Repeat  *NodeSpec  `json:"repeat,omitempty" mapstructure:"repeat"`

	While string    `json:"while,omitempty" mapstructure:"while"`
	Do    *NodeSpec `json:"do,omitempty" mapstructure:"do" validate:"required_with=While"`

	If   string    `json:"if,omitempty" mapstructure:"if"`
	Then *NodeSpec `json:"then,omitempty" mapstructure:"then" validate:"required_with=If"`
	Else *NodeSpec `json:"else,omitempty" mapstructure:"else"`

	Check   string `json:"check,omitempty" mapstructure:"check"`
	Succeed bool   `json:"succeed,omitempty" mapstructure:"succeed"`
	Fail    bool   `json:"fail,omitempty" mapstructure:"fail"`

	Goal   string      `json:"goal,omitempty" mapstructure:"goal"`
	Solve  string      `json:"solve,omitempty" mapstructure:"solve" validate:"required_with=Goal"`
	Tactic *TacticSpec `json:"tactic,omitempty" mapstructure:"tactic" validate:"required_with=Goal"`
	Oracle *OracleSpec `json:"oracle,omitempty" mapstructure:"oracle"`
}

// TacticSpec describes a tactic. Exactly one of action, send, abort, seq, first_of or
// any_of must be set. A send action runs an environment command against target and,
// with save, stores the result in a variable.
type TacticSpec struct {
	Action string         `json:"action,omitempty" mapstructure:"action"`
	Send   string         `json:"send,omitempty" mapstructure:"send"`
	Target string         `json:"target,omitempty" mapstructure:"target"`
	Save   string         `json:"save,omitempty" mapstructure:"save"`
	Guard  string         `json:"guard,omitempty" mapstructure:"guard"`
	Args   map[string]any `json:"args,omitempty" mapstructure:"args"`
	Abort  bool           `json:"abort,omitempty" mapstructure:"abort"`

	Seq     []TacticSpec `json:"seq,omitempty" mapstructure:"seq" validate:"omitempty,dive"`
	FirstOf []TacticSpec `json:"first_of,omitempty" mapstructure:"first_of" validate:"omitempty,dive"`
	AnyOf   []TacticSpec `json:"any_of,omitempty" mapstructure:"any_of" validate:"omitempty,dive"`
}

// OracleSpec turns a goal into a test goal: once solved, the verdict is pass when the
// expression holds and fail otherwise.
type OracleSpec struct {
	Pass string `json:"pass" mapstructure:"pass" validate:"required"`
	Info string `json:"info,omitempty" mapstructure:"info"`
}

var validate = validator.New()

// Parse decodes and validates a YAML scenario.
func Parse(data []byte) (*Spec, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}
	return Decode(raw)
}

// Decode builds a Spec from an already parsed document, e.g. a section of a larger
// configuration file.
func Decode(raw map[string]any) (*Spec, error) {
	var spec Spec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &spec,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &ValidationError{Path: "scenario", Reason: err.Error()}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Load reads a scenario file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return spec, nil
}

// Validate checks field constraints and that every node has exactly one kind.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ValidationError{Path: "scenario", Reason: err.Error()}
	}
	if err := s.Environment.check(); err != nil {
		return err
	}
	return s.Goal.check("goal")
}

// Command looks up a declared environment command.
func (e *EnvironmentSpec) Command(name string) (CommandSpec, bool) {
	if e == nil {
		return CommandSpec{}, false
	}
	for _, c := range e.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return CommandSpec{}, false
}

func (e *EnvironmentSpec) check() error {
	if e == nil {
		return nil
	}
	seen := make(map[string]bool, len(e.Commands))
	for i, c := range e.Commands {
		if seen[c.Name] {
			return &ValidationError{Path: fmt.Sprintf("environment.commands[%d]", i), Reason: "duplicate command " + c.Name}
		}
		seen[c.Name] = true
	}
	for field, name := range map[string]string{"refresh": e.Refresh, "reset": e.Reset} {
		if name != "" && !seen[name] {
			return &ValidationError{Path: "environment." + field, Reason: "unknown command " + name}
		}
	}
	return nil
}

// NewState returns a fresh State holding a copy of the scenario variables.
func (s *Spec) NewState() *State {
	vars := maps.Clone(s.Vars)
	if vars == nil {
		vars = make(map[string]any)
	}
	return &State{Vars: vars}
}

func (n *NodeSpec) kinds() []string {
	var ks []string
	if len(n.Seq) > 0 {
		ks = append(ks, "seq")
	}
	if len(n.FirstOf) > 0 {
		ks = append(ks, "first_of")
	}
	if n.Repeat != nil {
		ks = append(ks, "repeat")
	}
	if n.While != "" {
		ks = append(ks, "while")
	}
	if n.If != "" {
		ks = append(ks, "if")
	}
	if n.Check != "" {
		ks = append(ks, "check")
	}
	if n.Succeed {
		ks = append(ks, "succeed")
	}
	if n.Fail {
		ks = append(ks, "fail")
	}
	if n.Goal != "" {
		ks = append(ks, "goal")
	}
	return ks
}

func (n *NodeSpec) check(path string) error {
	ks := n.kinds()
	if len(ks) != 1 {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("node must have exactly one kind, got %v", ks)}
	}
	switch ks[0] {
	case "seq":
		return checkAll(path+".seq", n.Seq)
	case "first_of":
		return checkAll(path+".first_of", n.FirstOf)
	case "repeat":
		return n.Repeat.check(path + ".repeat")
	case "while":
		return n.Do.check(path + ".do")
	case "if":
		if err := n.Then.check(path + ".then"); err != nil {
			return err
		}
		if n.Else != nil {
			return n.Else.check(path + ".else")
		}
	case "goal":
		return n.Tactic.check(path + ".tactic")
	}
	return nil
}

func checkAll(path string, nodes []NodeSpec) error {
	for i := range nodes {
		if err := nodes[i].check(fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (t *TacticSpec) check(path string) error {
	n := 0
	for _, set := range []bool{t.Action != "", t.Send != "", t.Abort, len(t.Seq) > 0, len(t.FirstOf) > 0, len(t.AnyOf) > 0} {
		if set {
			n++
		}
	}
	if n != 1 {
		return &ValidationError{Path: path, Reason: "tactic must set exactly one of action, send, abort, seq, first_of, any_of"}
	}
	if t.Send == "" && (t.Target != "" || t.Save != "") {
		return &ValidationError{Path: path, Reason: "target and save only apply to send"}
	}
	for name, children := range map[string][]TacticSpec{"seq": t.Seq, "first_of": t.FirstOf, "any_of": t.AnyOf} {
		for i := range children {
			if err := children[i].check(fmt.Sprintf("%s.%s[%d]", path, name, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
