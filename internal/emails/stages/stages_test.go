package stages

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/emailbuilder/internal/config"
	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/emailbuilder/internal/styles"
)

type fakeCompiler struct {
	css  string
	err  error
	reqs []styles.CompileRequest
}

func (f *fakeCompiler) Compile(_ context.Context, req styles.CompileRequest) ([]byte, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.css), nil
}

const layout = `<html><head><!-- <style> --><link rel="stylesheet" type="text/css" href="/css/email.css"></head>
<body><container class="body"><p class="greeting">Hello {{ $user->name }}</p></container></body></html>`

const compiled = `.greeting { color: red; }
.unused { color: blue; }
@media only screen and (max-width: 596px) { .greeting { color: green; } }`

func memState(t *testing.T, env config.Env) (*models.BuildState, *fakeCompiler) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	cfg := config.Defaults()
	cfg.SassFilename = config.SassBaseName(cfg.Sass)
	bs := models.NewBuildState(&cfg, env, fsys, models.NewBuildReport("test", models.TriggerBuild))
	fc := &fakeCompiler{css: compiled}
	bs.Toolchain.Compiler = fc
	return bs, fc
}

func write(t *testing.T, fsys afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, writeFile(fsys, name, []byte(content)))
}

func read(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, name)
	require.NoError(t, err)
	return string(data)
}

func exists(fsys afero.Fs, name string) bool {
	ok, _ := afero.Exists(fsys, name)
	return ok
}

func TestStageClean(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	cfg := bs.Config
	write(t, bs.FS, cfg.CompiledCSSPath(), "x")
	write(t, bs.FS, cfg.Views+"/welcome.blade.php", "x")
	write(t, bs.FS, cfg.PublicCSSPath(), "x")
	write(t, bs.FS, cfg.PublicCSS+"/app.css", "keep")
	write(t, bs.FS, cfg.ImagesDist+"/logo.png", "x")

	require.NoError(t, StageClean(context.Background(), bs))

	assert.False(t, exists(bs.FS, cfg.Compiled))
	assert.False(t, exists(bs.FS, cfg.Views))
	assert.False(t, exists(bs.FS, cfg.PublicCSSPath()))
	assert.False(t, exists(bs.FS, cfg.ImagesDist))
	assert.True(t, exists(bs.FS, cfg.PublicCSS+"/app.css"))
	assert.Equal(t, []string{"Clean compiled"}, bs.Report.Steps)
}

func TestStageTemplates(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	cfg := bs.Config
	write(t, bs.FS, cfg.Source+"/welcome.blade.php", layout)
	write(t, bs.FS, cfg.Source+"/auth/reset.blade.php", `<button href="{{ $url }}">Reset</button>`)
	write(t, bs.FS, cfg.Source+"/notes.txt", "ignored")

	require.NoError(t, StageTemplates(context.Background(), bs))

	welcome := read(t, bs.FS, cfg.Views+"/welcome.blade.php")
	assert.Contains(t, welcome, `<table align="center" class="container body">`)
	assert.Contains(t, welcome, "{{ $user->name }}")
	assert.Contains(t, read(t, bs.FS, cfg.Views+"/auth/reset.blade.php"), `href="{{ $url }}"`)
	assert.False(t, exists(bs.FS, cfg.Views+"/notes.txt"))
	assert.Equal(t, 2, bs.Report.Files[models.StageTemplates])
	assert.Equal(t, []string{cfg.Source + "/**/*.blade.php"}, bs.Report.Sources)
	assert.Equal(t, []string{cfg.Views}, bs.Report.Outputs)
}

func TestStageTemplates_MissingSourceIsNoop(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	require.NoError(t, StageTemplates(context.Background(), bs))
	assert.Zero(t, bs.Report.Files[models.StageTemplates])
}

func TestStageTemplates_ReadOnlyOutputIsFilesystemError(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	write(t, bs.FS, bs.Config.Source+"/welcome.blade.php", layout)
	bs.FS = afero.NewReadOnlyFs(bs.FS)

	err := StageTemplates(context.Background(), bs)
	require.Error(t, err)
	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryFileSystem, classified.Category())
	assert.True(t, classified.CanRetry())
	assert.Equal(t, bs.Config.Views+"/welcome.blade.php", classified.Context()["path"])
	assert.Zero(t, bs.Report.Files[models.StageTemplates])
}

func TestStageTemplates_WatchingSuppressesPaths(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	bs.Watching = true
	require.NoError(t, StageTemplates(context.Background(), bs))
	assert.Empty(t, bs.Report.Sources)
	assert.Empty(t, bs.Report.Outputs)
	assert.Equal(t, []string{"Compiling Templates"}, bs.Report.Steps)
}

func TestStageStyles_Development(t *testing.T) {
	bs, fc := memState(t, config.Env{Sourcemaps: true})
	cfg := bs.Config
	write(t, bs.FS, cfg.Sass, ".greeting { color: red; }")

	require.NoError(t, StageStyles(context.Background(), bs))

	assert.Equal(t, compiled, read(t, bs.FS, cfg.CompiledCSSPath()))
	assert.Equal(t, compiled, read(t, bs.FS, cfg.PublicCSSPath()))
	require.Len(t, fc.reqs, 1)
	assert.True(t, fc.reqs[0].SourceMaps)
	assert.Equal(t, cfg.SassIncludePaths, fc.reqs[0].LoadPaths)
	assert.Equal(t, []string{cfg.CompiledCSSPath(), cfg.PublicCSSPath()}, bs.Report.Outputs)
}

func TestStageStyles_ProductionPurgesAndSkipsPublic(t *testing.T) {
	bs, _ := memState(t, config.Env{Production: true})
	cfg := bs.Config
	write(t, bs.FS, cfg.Sass, "ignored by fake")
	write(t, bs.FS, cfg.Views+"/welcome.blade.php", `<p class="greeting">hi</p>`)

	require.NoError(t, StageStyles(context.Background(), bs))

	css := read(t, bs.FS, cfg.CompiledCSSPath())
	assert.Contains(t, css, ".greeting")
	assert.NotContains(t, css, ".unused")
	assert.Contains(t, css, "@media")
	assert.False(t, exists(bs.FS, cfg.PublicCSSPath()))
}

func TestStageStyles_CompileError(t *testing.T) {
	bs, fc := memState(t, config.Env{})
	fc.err = styles.ErrCompileFailed
	write(t, bs.FS, bs.Config.Sass, "broken {")

	err := StageStyles(context.Background(), bs)
	require.ErrorIs(t, err, styles.ErrCompileFailed)
	assert.True(t, errors.HasCategory(err, errors.CategoryStyle))
	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.RetryUserAction, classified.RetryStrategy())
	assert.False(t, exists(bs.FS, bs.Config.CompiledCSSPath()))
}

func TestStageImages(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	cfg := bs.Config
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < 16; i++ {
		img.Set(i, i, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, (&png.Encoder{CompressionLevel: png.NoCompression}).Encode(&buf, img))
	write(t, bs.FS, cfg.Images+"/icons/logo.png", buf.String())
	write(t, bs.FS, cfg.Images+"/anim.gif", "GIF89a")

	require.NoError(t, StageImages(context.Background(), bs))

	out := read(t, bs.FS, cfg.ImagesDist+"/icons/logo.png")
	assert.Less(t, len(out), buf.Len())
	assert.Equal(t, "GIF89a", read(t, bs.FS, cfg.ImagesDist+"/anim.gif"))
	assert.Equal(t, 2, bs.Report.Files[models.StageImages])
}

func TestStageImages_CorruptFileContinues(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	cfg := bs.Config
	write(t, bs.FS, cfg.Images+"/broken.png", "nope")
	write(t, bs.FS, cfg.Images+"/ok.gif", "GIF89a")

	err := StageImages(context.Background(), bs)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryImage))
	assert.True(t, exists(bs.FS, cfg.ImagesDist+"/ok.gif"))
}

func TestStageInline_DevelopmentIsNoop(t *testing.T) {
	bs, _ := memState(t, config.Env{})
	write(t, bs.FS, bs.Config.Views+"/welcome.blade.php", layout)

	require.NoError(t, StageInline(context.Background(), bs))
	assert.Equal(t, layout, read(t, bs.FS, bs.Config.Views+"/welcome.blade.php"))
	assert.Empty(t, bs.Report.Steps)
}

func TestStageInline_MissingStylesheet(t *testing.T) {
	bs, _ := memState(t, config.Env{Production: true})
	write(t, bs.FS, bs.Config.Views+"/welcome.blade.php", layout)

	err := StageInline(context.Background(), bs)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestFullPipeline_Production(t *testing.T) {
	bs, _ := memState(t, config.Env{Production: true})
	cfg := bs.Config
	write(t, bs.FS, cfg.Sass, "ignored by fake")
	write(t, bs.FS, cfg.Source+"/welcome.blade.php", layout)

	require.NoError(t, RunStages(context.Background(), bs, Default()))

	view := read(t, bs.FS, cfg.Views+"/welcome.blade.php")
	assert.Contains(t, view, "{{ $user->name }}")
	assert.Regexp(t, `class="?greeting"? style="color: ?red;?"`, view)
	assert.Contains(t, view, "<style>")
	assert.Contains(t, view, "max-width: 596px")
	assert.NotContains(t, view, "<link")
	assert.NotContains(t, view, "ebph")
	assert.Equal(t, 1, strings.Count(view, "<style>"))
	assert.Equal(t, []string{"Clean compiled", "Compiling Templates", "Compiling Sass", "Minifying Images", "Inlining Css"}, bs.Report.Steps)
}
