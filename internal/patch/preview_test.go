package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
)

func previewConfig(root string) *policy.Config {
	cfg := policy.Default()
	cfg.Root = root
	return cfg
}

func previewOne(t *testing.T, cfg *policy.Config, task string, step plan.Step) Preview {
	t.Helper()
	pvs, err := NewPreviewer(cfg, task).Preview(&plan.Plan{Steps: []plan.Step{step}})
	require.NoError(t, err)
	require.Len(t, pvs, 1)
	return pvs[0]
}

func TestPreviewCreateNewFile(t *testing.T) {
	root := t.TempDir()

	pv := previewOne(t, previewConfig(root), "", &plan.CreateStep{
		Meta:    plan.Meta{ID: "s1"},
		Path:    "src/a.ts",
		Content: plan.Str("hello"),
	})

	assert.Equal(t, plan.ActionCreate, pv.Kind)
	assert.Equal(t, "s1", pv.StepID)
	assert.Equal(t, "src/a.ts", pv.Path)
	assert.Nil(t, pv.BytesBefore)
	require.NotNil(t, pv.BytesAfter)
	assert.Equal(t, int64(6), *pv.BytesAfter, "content gains a trailing newline")
	assert.Equal(t, "+ hello", pv.DiffSnippet)
	assert.Equal(t, 1, pv.Insertions)

	_, exists := readTree(t, root, "src/a.ts")
	assert.False(t, exists, "preview must not write")
}

func TestPreviewUpdateReplaces(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/b.ts": "one\ntwo\n"})

	pv := previewOne(t, previewConfig(root), "rewrite b", &plan.UpdateStep{
		Path:    "src/b.ts",
		Content: plan.Str("one\nthree"),
	})

	require.NotNil(t, pv.BytesBefore)
	assert.Equal(t, int64(8), *pv.BytesBefore)
	assert.Equal(t, int64(10), *pv.BytesAfter)
	assert.Equal(t, "- two\n+ three", pv.DiffSnippet)
	assert.Equal(t, 1, pv.Insertions)
	assert.Equal(t, 1, pv.Deletions)

	got, _ := readTree(t, root, "src/b.ts")
	assert.Equal(t, "one\ntwo\n", got)
}

func TestPreviewUpdateMergesAdditiveTask(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/list.ts": "a\nb\n"})

	pv := previewOne(t, previewConfig(root), "add item c", &plan.UpdateStep{
		Path:    "src/list.ts",
		Content: plan.Str("a\nc"),
	})

	// b survives the merge, so the file grows by one line.
	assert.Equal(t, int64(6), *pv.BytesAfter)
	assert.Equal(t, "+ c", pv.DiffSnippet)
	assert.Equal(t, 0, pv.Deletions)
}

func TestPreviewUpdatePreservesDirective(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app/page.tsx": "'use client'\nold\n"})

	pv := previewOne(t, previewConfig(root), "", &plan.UpdateStep{
		Path:    "app/page.tsx",
		Content: plan.Str("new"),
	})

	assert.Equal(t, int64(len("'use client'\n\nnew\n")), *pv.BytesAfter)
	assert.NotContains(t, pv.DiffSnippet, "- 'use client'")
}

func TestPreviewUpdateMissingFile(t *testing.T) {
	pv := previewOne(t, previewConfig(t.TempDir()), "", &plan.UpdateStep{
		Path:    "src/new.ts",
		Content: plan.Str("x"),
	})

	assert.Nil(t, pv.BytesBefore)
	assert.Equal(t, int64(2), *pv.BytesAfter)
	assert.Contains(t, pv.Note, "will create it")
}

func TestPreviewPatchOnlyUpdate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/a.ts": "x\n"})

	pv := previewOne(t, previewConfig(root), "", &plan.UpdateStep{
		Path:  "src/a.ts",
		Patch: plan.Str("@@ -1 +1 @@\n-x\n+y\n"),
	})

	assert.Equal(t, int64(2), *pv.BytesBefore)
	assert.Nil(t, pv.BytesAfter)
	assert.Empty(t, pv.DiffSnippet)
	assert.Contains(t, pv.Note, "skipped")
}

func TestPreviewDelete(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/a.ts": "one\ntwo\n"})
	cfg := previewConfig(root)

	pv := previewOne(t, cfg, "", &plan.DeleteStep{Path: "src/a.ts"})
	assert.Equal(t, int64(8), *pv.BytesBefore)
	assert.Equal(t, int64(0), *pv.BytesAfter)
	assert.Equal(t, 2, pv.Deletions)

	pv = previewOne(t, cfg, "", &plan.DeleteStep{Path: "src/missing.ts"})
	assert.Equal(t, int64(0), *pv.BytesBefore)
	assert.Equal(t, int64(0), *pv.BytesAfter)
	assert.NotEmpty(t, pv.Note)
}

func TestPreviewCommands(t *testing.T) {
	cfg := previewConfig(t.TempDir())

	pv := previewOne(t, cfg, "", &plan.CommandStep{Command: "npm install", Cwd: plan.Str("app")})
	assert.Equal(t, plan.ActionCommand, pv.Kind)
	assert.Equal(t, "npm install", pv.Command)
	assert.Equal(t, "app", pv.Cwd)
	assert.Empty(t, pv.Path)

	pv = previewOne(t, cfg, "", &plan.TestStep{Command: "npm test"})
	assert.Equal(t, "npm test", pv.Command)
}

func TestPreviewTruncatesSnippet(t *testing.T) {
	cfg := previewConfig(t.TempDir())
	cfg.PreviewLines = 2

	pv := previewOne(t, cfg, "", &plan.CreateStep{Path: "src/a.ts", Content: plan.Str("1\n2\n3\n4")})

	assert.Equal(t, "+ 1\n+ 2\n"+truncatedMarker, pv.DiffSnippet)
	assert.Equal(t, 4, pv.Insertions)
}

func TestPreviewRejectsEscapingPath(t *testing.T) {
	_, err := NewPreviewer(previewConfig(t.TempDir()), "").Preview(&plan.Plan{Steps: []plan.Step{
		&plan.CreateStep{Path: "../evil.ts", Content: plan.Str("x")},
	}})

	require.Error(t, err)
	assert.Equal(t, errors.KindPathRejected, errors.KindOf(err))
}

func TestPreviewCreateWithoutContent(t *testing.T) {
	_, err := NewPreviewer(previewConfig(t.TempDir()), "").Preview(&plan.Plan{Steps: []plan.Step{
		&plan.CreateStep{Path: "src/a.ts"},
	}})

	assert.ErrorIs(t, err, errors.ErrMalformedStep)
}

func TestNewPreviewerCaps(t *testing.T) {
	cfg := policy.Default()
	p := NewPreviewer(cfg, "")
	assert.Equal(t, DefaultCreateLines, p.CreateLines)
	assert.Equal(t, DefaultUpdateLines, p.UpdateLines)

	cfg.PreviewLines = 10
	p = NewPreviewer(cfg, "")
	assert.Equal(t, 10, p.CreateLines)
	assert.Equal(t, 10, p.UpdateLines)
}

func TestPreviewSeesEarlierSteps(t *testing.T) {
	root := t.TempDir()

	pvs, err := NewPreviewer(previewConfig(root), "").Preview(&plan.Plan{Steps: []plan.Step{
		&plan.CreateStep{Path: "src/a.txt", Content: plan.Str("hi")},
		&plan.UpdateStep{Path: "src/a.txt", Content: plan.Str("hello")},
		&plan.DeleteStep{Path: "src/a.txt"},
	}})
	require.NoError(t, err)
	require.Len(t, pvs, 3)

	assert.Nil(t, pvs[0].BytesBefore)
	assert.Equal(t, int64(3), *pvs[1].BytesBefore)
	assert.Equal(t, "- hi\n+ hello", pvs[1].DiffSnippet)
	assert.Empty(t, pvs[1].Note)
	assert.Equal(t, int64(6), *pvs[2].BytesBefore)

	_, exists := readTree(t, root, "src/a.txt")
	assert.False(t, exists)
}
