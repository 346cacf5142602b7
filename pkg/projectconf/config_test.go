package projectconf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/annotator"
)

const testConfig = `
entities: [Protein, Gene]
events: [Binding, Phosphorylation]
relations:
  - type: Part-of
    args: [Arg1, Arg2]
  - type: Equiv
    args: [Arg1, Arg2]
    properties: [symmetric, transitive]
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !c.IsPhysicalEntityType("Protein") || c.IsPhysicalEntityType("Binding") {
		t.Error("entity types wrong")
	}
	if !c.IsEventType("Binding") || c.IsEventType("Protein") {
		t.Error("event types wrong")
	}
	if !c.IsRelationType("Equiv") || !c.IsEquivType("Equiv") || c.IsEquivType("Part-of") {
		t.Error("relation types wrong")
	}

	cases := map[string]annotator.Category{
		"Gene":            annotator.CategoryEntity,
		"Phosphorylation": annotator.CategoryEvent,
		"Part-of":         annotator.CategoryRelation,
		"Theme":           annotator.CategoryUnknown,
	}
	for typ, want := range cases {
		if got := c.TypeCategory(typ); got != want {
			t.Errorf("TypeCategory(%s) = %v, want %v", typ, got, want)
		}
	}

	a1, a2, ok := c.RelationArgLabels("Part-of")
	if !ok || a1 != "Arg1" || a2 != "Arg2" {
		t.Errorf("RelationArgLabels = %q %q %v", a1, a2, ok)
	}
	if _, _, ok := c.RelationArgLabels("Binding"); ok {
		t.Error("event type should have no relation labels")
	}
}

func TestParseRejectsInconsistentTypes(t *testing.T) {
	bad := []string{
		"entities: [Protein]\nevents: [Protein]\n",
		"relations:\n  - type: Part-of\n    args: [Arg1]\n",
		"relations:\n  - type: Part-of\n    args: [Arg1, Arg1]\n",
		"entities: ['']\n",
	}
	for _, data := range bad {
		if _, err := Parse([]byte(data)); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalid", data, err)
		}
	}
	if _, err := Parse([]byte("entities: {")); err == nil {
		t.Error("expected YAML error")
	}
}

func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCacheFindsParentConfig(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, root, testConfig)

	c := NewCache(root, zerolog.Nop())
	conf, err := c.Get(sub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conf.Path() != filepath.Join(root, FileName) {
		t.Errorf("Path = %q", conf.Path())
	}
	if !conf.IsEventType("Binding") {
		t.Error("config not loaded from parent")
	}

	again, _ := c.Get(sub)
	if again != conf {
		t.Error("second Get should hit the cache")
	}
}

func TestCacheWithoutConfigIsEmpty(t *testing.T) {
	root := t.TempDir()
	c := NewCache(root, zerolog.Nop())
	conf, err := c.Get(root)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conf.IsEventType("Binding") || conf.TypeCategory("Protein") != annotator.CategoryUnknown {
		t.Error("expected empty configuration")
	}
}

func TestCacheReloadsOnModTimeChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, testConfig)

	c := NewCache(dir, zerolog.Nop())
	first, err := c.Get(dir)
	if err != nil {
		t.Fatal(err)
	}

	writeConfig(t, dir, "entities: [Binding]\n")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	second, err := c.Get(dir)
	if err != nil {
		t.Fatal(err)
	}
	if second == first || !second.IsPhysicalEntityType("Binding") {
		t.Error("changed configuration was not reloaded")
	}

	c.Invalidate(dir)
	if c.Len() != 0 {
		t.Errorf("Len after Invalidate = %d", c.Len())
	}
}

func TestCacheWatchDropsEntries(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, testConfig)

	c := NewCache(dir, zerolog.Nop())
	if _, err := c.Get(dir); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.watched[dir]
	})

	writeConfig(t, dir, "entities: [Binding]\n")
	waitFor(t, func() bool { return c.Len() == 0 })
}

func TestCacheWatchSeesIntermediateConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, testConfig)
	mid := filepath.Join(root, "corpus")
	docs := filepath.Join(mid, "train")
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatal(err)
	}

	c := NewCache(root, zerolog.Nop())
	if _, err := c.Get(docs); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.watched[docs] && c.watched[mid] && c.watched[root]
	})

	writeConfig(t, mid, "entities: [Gene]\n")
	waitFor(t, func() bool { return c.Len() == 0 })

	conf, err := c.Get(docs)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Path() != filepath.Join(mid, FileName) || !conf.IsPhysicalEntityType("Gene") {
		t.Errorf("got configuration from %s", conf.Path())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
