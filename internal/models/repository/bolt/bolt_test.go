package bolt

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hornwind/ipset/internal/models"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSetStateRoundTrip(t *testing.T) {
	s := testStorage(t)

	state := &models.SetState{
		Name:            "allow-hosts",
		TypeName:        "hash:ip",
		UpdateTimestamp: time.Now().Round(time.Second),
		Entries:         []string{"10.0.0.1", "10.0.0.2"},
		Rule:            []string{"-m", "set", "--match-set", "allow-hosts", "src", "-j", "ACCEPT"},
		Applied:         true,
	}
	if err := s.CreateOrUpdate(state); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}

	got, err := s.GetSetState("allow-hosts")
	if err != nil {
		t.Fatalf("GetSetState: %v", err)
	}
	if got.TypeName != state.TypeName {
		t.Errorf("type = %q", got.TypeName)
	}
	if !got.UpdateTimestamp.Equal(state.UpdateTimestamp) {
		t.Errorf("timestamp = %v, want %v", got.UpdateTimestamp, state.UpdateTimestamp)
	}
	if !reflect.DeepEqual(got.Entries, state.Entries) {
		t.Errorf("entries = %v", got.Entries)
	}
	if !reflect.DeepEqual(got.Rule, state.Rule) {
		t.Errorf("rule = %v", got.Rule)
	}
	if !got.Applied {
		t.Error("applied flag lost")
	}
}

func TestAppliedFlag(t *testing.T) {
	s := testStorage(t)
	state := &models.SetState{
		Name:            "deny-nets",
		TypeName:        "hash:net",
		UpdateTimestamp: time.Now(),
		Entries:         []string{"192.0.2.0/24"},
	}
	if err := s.CreateOrUpdate(state); err != nil {
		t.Fatal(err)
	}

	applied, err := s.GetApplied("deny-nets")
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("new state reported as applied")
	}

	if err := s.SetApplied("deny-nets", true); err != nil {
		t.Fatal(err)
	}
	applied, err = s.GetApplied("deny-nets")
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Error("applied flag not persisted")
	}
}

func TestRuleStorage(t *testing.T) {
	s := testStorage(t)
	state := &models.SetState{
		Name:            "svc",
		TypeName:        "hash:ip,port",
		UpdateTimestamp: time.Now(),
		Entries:         []string{"10.0.0.1,80"},
	}
	if err := s.CreateOrUpdate(state); err != nil {
		t.Fatal(err)
	}

	rule := []string{"-m", "set", "--match-set", "svc", "src", "-j", "DROP"}
	if err := s.StoreRule("svc", rule); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRule("svc")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rule) {
		t.Errorf("rule = %v", got)
	}
}

func TestListAndDelete(t *testing.T) {
	s := testStorage(t)
	for _, name := range []string{"one", "two"} {
		state := &models.SetState{
			Name:            name,
			TypeName:        "hash:ip",
			UpdateTimestamp: time.Now(),
		}
		if err := s.CreateOrUpdate(state); err != nil {
			t.Fatal(err)
		}
	}

	names, err := s.ListSets()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v", names)
	}

	if err := s.DeleteSet("one"); err != nil {
		t.Fatal(err)
	}
	names, err = s.ListSets()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "two" {
		t.Errorf("names = %v", names)
	}

	// deleting an absent bucket is not an error
	if err := s.DeleteSet("one"); err != nil {
		t.Errorf("DeleteSet repeat: %v", err)
	}

	if _, err := s.GetSetState("one"); err == nil {
		t.Error("deleted state still readable")
	}
}

func TestMissingBucket(t *testing.T) {
	s := testStorage(t)
	if _, err := s.GetApplied("ghost"); err == nil {
		t.Error("GetApplied on missing bucket succeeded")
	}
	if _, err := s.GetTimestamp("ghost"); err == nil {
		t.Error("GetTimestamp on missing bucket succeeded")
	}
	if err := s.SetApplied("ghost", true); err == nil {
		t.Error("SetApplied on missing bucket succeeded")
	}
}
