package variables

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/archkit/cadcore/pkg/identity"
)

// Variable is a named, unit-typed, textually-expressed global parameter.
// Name is unique (case-sensitive) within a Store. CachedValue holds the last
// evaluated result in the variable's OWN unit, not base units; Error holds
// the last evaluation failure. At most one of the two is set; both are nil
// until the next evaluation after an expression variable is created or updated.
type Variable struct {
	Id          identity.EntityId `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Expression  string            `yaml:"expression" json:"expression"`
	Unit        Unit              `yaml:"unit" json:"unit"`
	CachedValue *float64          `yaml:"cachedValue,omitempty" json:"cachedValue,omitempty"`
	Error       *string           `yaml:"error,omitempty" json:"error,omitempty"`
}

// NewVariable creates a variable holding a literal numeric value; its
// expression is that value's decimal text and it starts pre-cached.
func NewVariable(name string, value float64, unit Unit) Variable {
	v := value
	return Variable{
		Id:          identity.New(),
		Name:        name,
		Expression:  strconv.FormatFloat(value, 'g', -1, 64),
		Unit:        unit,
		CachedValue: &v,
	}
}

// NewVariableWithExpression creates a variable from an arbitrary expression
// string, uncached until the next evaluate_all pass.
func NewVariableWithExpression(name, expression string, unit Unit) Variable {
	return Variable{
		Id:         identity.New(),
		Name:       name,
		Expression: expression,
		Unit:       unit,
	}
}

// Store holds every global variable in a model: by id, by name, and in a
// user-defined display order. Invariant: the name index always mirrors
// variables' Name fields, and order contains every id exactly once.
type Store struct {
	variables map[identity.EntityId]Variable
	byName    map[string]identity.EntityId
	order     []identity.EntityId
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{
		variables: make(map[identity.EntityId]Variable),
		byName:    make(map[string]identity.EntityId),
	}
}

// Add inserts a variable, rejecting a name collision.
func (s *Store) Add(v Variable) (identity.EntityId, error) {
	if _, exists := s.byName[v.Name]; exists {
		return identity.EntityId{}, fmt.Errorf("variable %q already exists", v.Name)
	}
	s.byName[v.Name] = v.Id
	s.order = append(s.order, v.Id)
	s.variables[v.Id] = v
	return v.Id, nil
}

// Get looks up a variable by id.
func (s *Store) Get(id identity.EntityId) (Variable, bool) {
	v, ok := s.variables[id]
	return v, ok
}

// GetByName looks up a variable by its unique name.
func (s *Store) GetByName(name string) (Variable, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Variable{}, false
	}
	v, ok := s.variables[id]
	return v, ok
}

// UpdateExpression replaces a variable's expression text, invalidating its
// cached value and any recorded error.
func (s *Store) UpdateExpression(id identity.EntityId, expression string) error {
	v, ok := s.variables[id]
	if !ok {
		return fmt.Errorf("variable not found: %s", id)
	}
	v.Expression = expression
	v.CachedValue = nil
	v.Error = nil
	s.variables[id] = v
	return nil
}

// UpdateName renames a variable, rejecting a collision with a different
// variable and keeping the name index consistent.
func (s *Store) UpdateName(id identity.EntityId, newName string) error {
	if existing, ok := s.byName[newName]; ok && existing != id {
		return fmt.Errorf("variable %q already exists", newName)
	}
	v, ok := s.variables[id]
	if !ok {
		return fmt.Errorf("variable not found: %s", id)
	}
	delete(s.byName, v.Name)
	v.Name = newName
	s.byName[newName] = id
	s.variables[id] = v
	return nil
}

// UpdateUnit replaces a variable's unit, invalidating its cached value
// since the same number now means something different.
func (s *Store) UpdateUnit(id identity.EntityId, unit Unit) error {
	v, ok := s.variables[id]
	if !ok {
		return fmt.Errorf("variable not found: %s", id)
	}
	v.Unit = unit
	v.CachedValue = nil
	v.Error = nil
	s.variables[id] = v
	return nil
}

// UpdateDescription replaces a variable's free-text description.
func (s *Store) UpdateDescription(id identity.EntityId, description string) error {
	v, ok := s.variables[id]
	if !ok {
		return fmt.Errorf("variable not found: %s", id)
	}
	v.Description = description
	s.variables[id] = v
	return nil
}

// Remove deletes a variable by id, returning it if found.
func (s *Store) Remove(id identity.EntityId) (Variable, bool) {
	v, ok := s.variables[id]
	if !ok {
		return Variable{}, false
	}
	delete(s.variables, id)
	delete(s.byName, v.Name)
	out := s.order[:0:0]
	for _, oid := range s.order {
		if oid != id {
			out = append(out, oid)
		}
	}
	s.order = out
	return v, true
}

// OrderedVariables returns every variable in user-defined display order.
func (s *Store) OrderedVariables() []Variable {
	out := make([]Variable, 0, len(s.order))
	for _, id := range s.order {
		if v, ok := s.variables[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Order returns the raw ordered id list, e.g. for evaluate-all traversal.
func (s *Store) Order() []identity.EntityId {
	return append([]identity.EntityId(nil), s.order...)
}

// RebuildIndex regenerates the by-name index from the id-keyed map. Call
// this once after deserializing a store whose name index was not persisted.
func (s *Store) RebuildIndex() {
	s.byName = make(map[string]identity.EntityId, len(s.variables))
	for id, v := range s.variables {
		s.byName[v.Name] = id
	}
}

// Reorder moves a variable to newIndex within the display order, clamping
// to the list length.
func (s *Store) Reorder(id identity.EntityId, newIndex int) error {
	if _, ok := s.variables[id]; !ok {
		return fmt.Errorf("variable not found: %s", id)
	}
	out := s.order[:0:0]
	for _, oid := range s.order {
		if oid != id {
			out = append(out, oid)
		}
	}
	if newIndex > len(out) {
		newIndex = len(out)
	}
	if newIndex < 0 {
		newIndex = 0
	}
	out = append(out, identity.EntityId{})
	copy(out[newIndex+1:], out[newIndex:])
	out[newIndex] = id
	s.order = out
	return nil
}

func (s *Store) set(id identity.EntityId, v Variable) {
	s.variables[id] = v
}

// storeSnapshot is the serialisable form of Store: its display order with
// each variable inline. The id/name indexes are rebuilt on load.
type storeSnapshot struct {
	Variables []Variable `yaml:"variables" json:"variables"`
}

// MarshalYAML serialises the store as its ordered variable list.
func (s *Store) MarshalYAML() (interface{}, error) {
	return storeSnapshot{Variables: s.OrderedVariables()}, nil
}

// UnmarshalYAML rebuilds a store from its ordered variable list, then
// regenerates the name index.
func (s *Store) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var snap storeSnapshot
	if err := unmarshal(&snap); err != nil {
		return err
	}
	s.variables = make(map[identity.EntityId]Variable, len(snap.Variables))
	s.order = make([]identity.EntityId, 0, len(snap.Variables))
	for _, v := range snap.Variables {
		s.variables[v.Id] = v
		s.order = append(s.order, v.Id)
	}
	s.RebuildIndex()
	return nil
}

// MarshalJSON serialises the store as its ordered variable list.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(storeSnapshot{Variables: s.OrderedVariables()})
}

// UnmarshalJSON rebuilds a store from its ordered variable list, then
// regenerates the name index.
func (s *Store) UnmarshalJSON(data []byte) error {
	var snap storeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.variables = make(map[identity.EntityId]Variable, len(snap.Variables))
	s.order = make([]identity.EntityId, 0, len(snap.Variables))
	for _, v := range snap.Variables {
		s.variables[v.Id] = v
		s.order = append(s.order, v.Id)
	}
	s.RebuildIndex()
	return nil
}
