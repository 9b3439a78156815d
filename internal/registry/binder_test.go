package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/agenda/internal/models"
	"github.com/ternarybob/agenda/internal/scheduler"
)

// fakeSession records lifecycle calls for release-path assertions
type fakeSession struct {
	committed bool
	discarded bool
}

func (s *fakeSession) Get(key string) ([]byte, error) { return nil, nil }
func (s *fakeSession) Set(key string, v []byte) error { return nil }
func (s *fakeSession) Commit() error                  { s.committed = true; return nil }
func (s *fakeSession) Discard()                       { s.discarded = true }

type fakeStorage struct {
	sessions []*fakeSession
}

func (m *fakeStorage) TaskStorage() interfaces.TaskStorage         { return nil }
func (m *fakeStorage) ArtifactStorage() interfaces.ArtifactStorage { return nil }
func (m *fakeStorage) Close() error                                { return nil }
func (m *fakeStorage) NewSession() interfaces.Session {
	s := &fakeSession{}
	m.sessions = append(m.sessions, s)
	return s
}

type fakeSubmitter struct{}

func (f *fakeSubmitter) Submit(work scheduler.Work) (string, error) { return "job", nil }
func (f *fakeSubmitter) Get(jobID string) (*models.Job, error)      { return nil, nil }

func TestBindFromJSON(t *testing.T) {
	c := noopCallable("add",
		ParamSpec{Name: "a", Type: ParamNumber, Required: true},
		ParamSpec{Name: "b", Type: ParamNumber, Required: true},
	)

	args, release, err := Bind(c, map[string]interface{}{"a": float64(10), "b": float64(32)}, Capabilities{})
	require.NoError(t, err)
	defer release()

	assert.Equal(t, float64(10), args["a"])
	assert.Equal(t, float64(32), args["b"])
}

func TestBindTypeValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    ParamSpec
		value   interface{}
		wantErr bool
	}{
		{"string ok", ParamSpec{Name: "p", Type: ParamString, Required: true}, "hi", false},
		{"string mismatch", ParamSpec{Name: "p", Type: ParamString, Required: true}, float64(1), true},
		{"number json float", ParamSpec{Name: "p", Type: ParamNumber, Required: true}, float64(3), false},
		{"number go int", ParamSpec{Name: "p", Type: ParamNumber, Required: true}, 3, false},
		{"number mismatch", ParamSpec{Name: "p", Type: ParamNumber, Required: true}, "3", true},
		{"bool ok", ParamSpec{Name: "p", Type: ParamBool, Required: true}, true, false},
		{"bool mismatch", ParamSpec{Name: "p", Type: ParamBool, Required: true}, "true", true},
		{"object ok", ParamSpec{Name: "p", Type: ParamObject, Required: true}, map[string]interface{}{"k": "v"}, false},
		{"object mismatch", ParamSpec{Name: "p", Type: ParamObject, Required: true}, []interface{}{}, true},
		{"array ok", ParamSpec{Name: "p", Type: ParamArray, Required: true}, []interface{}{1.0}, false},
		{"array mismatch", ParamSpec{Name: "p", Type: ParamArray, Required: true}, map[string]interface{}{}, true},
		{"any accepts all", ParamSpec{Name: "p", Type: ParamAny, Required: true}, struct{}{}, false},
		{"null accepted", ParamSpec{Name: "p", Type: ParamString, Required: true}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := noopCallable("probe", tt.spec)
			_, release, err := Bind(c, map[string]interface{}{"p": tt.value}, Capabilities{})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrValidationFailed))
				return
			}
			require.NoError(t, err)
			release()
		})
	}
}

func TestBindDefaultsAndOptionals(t *testing.T) {
	c := noopCallable("greet",
		ParamSpec{Name: "name", Type: ParamString, Default: "world"},
		ParamSpec{Name: "shout", Type: ParamBool},
	)

	args, release, err := Bind(c, map[string]interface{}{}, Capabilities{})
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "world", args["name"])
	_, present := args["shout"]
	assert.False(t, present, "absent optional without default stays unbound")
}

func TestBindMissingRequired(t *testing.T) {
	c := noopCallable("add",
		ParamSpec{Name: "a", Type: ParamNumber, Required: true},
	)

	_, _, err := Bind(c, map[string]interface{}{}, Capabilities{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidationFailed))
	assert.Contains(t, err.Error(), `"a"`)
}

func TestBindInjectsCapabilities(t *testing.T) {
	storage := &fakeStorage{}
	submitter := &fakeSubmitter{}
	caps := Capabilities{Storage: storage, Artifacts: &stubArtifacts{}, Scheduler: submitter}

	c := noopCallable("wired",
		ParamSpec{Name: "session", Inject: CapabilitySession},
		ParamSpec{Name: "db", Inject: CapabilityDatabase},
		ParamSpec{Name: "artifacts", Inject: CapabilityArtifacts},
		ParamSpec{Name: "jobs", Inject: CapabilityScheduler},
	)

	args, release, err := Bind(c, nil, caps)
	require.NoError(t, err)

	require.Len(t, storage.sessions, 1)
	assert.Same(t, storage.sessions[0], args["session"].(*fakeSession))
	assert.Equal(t, storage, args["db"])
	assert.Equal(t, submitter, args["jobs"])
	assert.NotNil(t, args["artifacts"])

	assert.False(t, storage.sessions[0].discarded)
	release()
	assert.True(t, storage.sessions[0].discarded, "release must discard the injected session")
}

func TestBindMissingCapabilityConflicts(t *testing.T) {
	tests := []struct {
		name string
		spec ParamSpec
	}{
		{"session", ParamSpec{Name: "s", Inject: CapabilitySession}},
		{"database", ParamSpec{Name: "d", Inject: CapabilityDatabase}},
		{"artifacts", ParamSpec{Name: "a", Inject: CapabilityArtifacts}},
		{"scheduler", ParamSpec{Name: "j", Inject: CapabilityScheduler}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := noopCallable("wired", tt.spec)
			_, _, err := Bind(c, nil, Capabilities{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrConflict))
		})
	}
}

func TestBindReleasesSessionOnLaterFailure(t *testing.T) {
	storage := &fakeStorage{}
	c := noopCallable("wired",
		ParamSpec{Name: "session", Inject: CapabilitySession},
		ParamSpec{Name: "a", Type: ParamNumber, Required: true},
	)

	_, _, err := Bind(c, map[string]interface{}{}, Capabilities{Storage: storage})
	require.Error(t, err)
	require.Len(t, storage.sessions, 1)
	assert.True(t, storage.sessions[0].discarded, "session acquired before a failing bind must be released")
}

// stubArtifacts satisfies interfaces.ArtifactStorage for injection tests
type stubArtifacts struct{}

func (s *stubArtifacts) SaveArtifact(ctx context.Context, data json.RawMessage, parentID *string, level int) (*models.Artifact, error) {
	return nil, nil
}
func (s *stubArtifacts) GetArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	return nil, nil
}
func (s *stubArtifacts) ListArtifacts(ctx context.Context) ([]*models.Artifact, error) {
	return nil, nil
}
func (s *stubArtifacts) DeleteArtifact(ctx context.Context, id string) error { return nil }
