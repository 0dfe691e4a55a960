package space

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// TestConfigYAMLRoundTrip exercises Config's UnmarshalYAML/MarshalYAML
// through the actual gopkg.in/yaml.v3 codec a host would use to load a
// tuning preset, rather than just matching the Unmarshaler/Marshaler
// interface shape.
func TestConfigYAMLRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Gravity = Vector3YAML{X: 0, Y: -12.5, Z: 0}
	want.Constraint.Softness = 0.002
	want.Solver.Iterations = 8

	out, err := yaml.Marshal(want)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}

	var got Config
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}

	if got.Gravity != want.Gravity {
		t.Errorf("Gravity = %+v, want %+v", got.Gravity, want.Gravity)
	}
	if got.Constraint.Softness != want.Constraint.Softness {
		t.Errorf("Constraint.Softness = %v, want %v", got.Constraint.Softness, want.Constraint.Softness)
	}
	if got.Solver.Iterations != want.Solver.Iterations {
		t.Errorf("Solver.Iterations = %d, want %d", got.Solver.Iterations, want.Solver.Iterations)
	}
}

// TestConfigYAMLUnmarshalPartialDocumentKeepsDefaults exercises
// UnmarshalYAML's documented "a partial document doesn't repeat every
// other default" behavior through the real codec: a document naming only
// gravity must still end up with DefaultConfig's solver/constraint values.
func TestConfigYAMLUnmarshalPartialDocumentKeepsDefaults(t *testing.T) {
	doc := []byte("gravity:\n  x: 0\n  y: -1\n  z: 0\n")

	var got Config
	if err := yaml.Unmarshal(doc, &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}

	want := DefaultConfig()
	if got.Gravity != (Vector3YAML{X: 0, Y: -1, Z: 0}) {
		t.Errorf("Gravity = %+v, want {0 -1 0}", got.Gravity)
	}
	if got.Constraint != want.Constraint {
		t.Errorf("Constraint = %+v, want defaults %+v", got.Constraint, want.Constraint)
	}
	if got.Solver != want.Solver {
		t.Errorf("Solver = %+v, want defaults %+v", got.Solver, want.Solver)
	}
}
