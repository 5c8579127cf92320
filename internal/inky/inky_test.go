package inky

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_Components(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "container",
			in:   `<container class="body">x</container>`,
			want: `<table align="center" class="container body"><tbody><tr><td>x</td></tr></tbody></table>`,
		},
		{
			name: "row with two columns",
			in:   `<row><columns large="6">A</columns><columns large="6">B</columns></row>`,
			want: `<table class="row"><tbody><tr>` +
				`<th class="small-12 large-6 columns first"><table><tbody><tr><th>A</th></tr></tbody></table></th>` +
				`<th class="small-12 large-6 columns last"><table><tbody><tr><th>B</th></tr></tbody></table></th>` +
				`</tr></tbody></table>`,
		},
		{
			name: "single full-width column gets expander",
			in:   `<row><columns>A</columns></row>`,
			want: `<table class="row"><tbody><tr>` +
				`<th class="small-12 large-12 columns first last"><table><tbody><tr><th>A</th><th class="expander"></th></tr></tbody></table></th>` +
				`</tr></tbody></table>`,
		},
		{
			name: "default large size splits the grid",
			in:   `<row><columns>A</columns><columns>B</columns><columns>C</columns></row>`,
			want: `<table class="row"><tbody><tr>` +
				`<th class="small-12 large-4 columns first"><table><tbody><tr><th>A</th></tr></tbody></table></th>` +
				`<th class="small-12 large-4 columns"><table><tbody><tr><th>B</th></tr></tbody></table></th>` +
				`<th class="small-12 large-4 columns last"><table><tbody><tr><th>C</th></tr></tbody></table></th>` +
				`</tr></tbody></table>`,
		},
		{
			name: "button with link",
			in:   `<button href="https://example.com" target="_blank" class="small">Go</button>`,
			want: `<table class="button small"><tbody><tr><td><table><tbody><tr><td>` +
				`<a href="https://example.com" target="_blank">Go</a>` +
				`</td></tr></tbody></table></td></tr></tbody></table>`,
		},
		{
			name: "expanded button",
			in:   `<button class="expanded" href="#">Go</button>`,
			want: `<table class="button expanded"><tbody><tr><td><table><tbody><tr><td>` +
				`<center data-parsed=""><a href="#" align="center" class="float-center">Go</a></center>` +
				`</td></tr></tbody></table></td><td class="expander"></td></tr></tbody></table>`,
		},
		{
			name: "spacer default",
			in:   `<spacer></spacer>`,
			want: `<table class="spacer"><tbody><tr><td height="16px" style="font-size:16px;line-height:16px;">&nbsp;</td></tr></tbody></table>`,
		},
		{
			name: "responsive spacer",
			in:   `<spacer size-sm="10" size-lg="20" />`,
			want: `<table class="spacer hide-for-large"><tbody><tr><td height="10px" style="font-size:10px;line-height:10px;">&nbsp;</td></tr></tbody></table>` +
				`<table class="spacer show-for-large"><tbody><tr><td height="20px" style="font-size:20px;line-height:20px;">&nbsp;</td></tr></tbody></table>`,
		},
		{
			name: "wrapper",
			in:   `<wrapper class="header">x</wrapper>`,
			want: `<table class="wrapper header" align="center"><tbody><tr><td class="wrapper-inner">x</td></tr></tbody></table>`,
		},
		{
			name: "callout",
			in:   `<callout class="primary">x</callout>`,
			want: `<table class="callout"><tbody><tr><th class="callout-inner primary">x</th><th class="expander"></th></tr></tbody></table>`,
		},
		{
			name: "h-line",
			in:   `<h-line class="thin"></h-line>`,
			want: `<table class="h-line thin"><tr><th>&nbsp;</th></tr></table>`,
		},
		{
			name: "menu with items",
			in:   `<menu><item href="/a">A</item></menu>`,
			want: `<table class="menu"><tbody><tr><td><table><tbody><tr>` +
				`<th class="menu-item"><a href="/a">A</a></th>` +
				`</tr></tbody></table></td></tr></tbody></table>`,
		},
		{
			name: "centered menu",
			in:   `<center><menu><item href="/a">A</item></menu></center>`,
			want: `<center data-parsed=""><table class="menu float-center" align="center"><tbody><tr><td><table><tbody><tr>` +
				`<th class="menu-item float-center"><a href="/a">A</a></th>` +
				`</tr></tbody></table></td></tr></tbody></table></center>`,
		},
		{
			name: "block grid",
			in:   `<block-grid up="3">x</block-grid>`,
			want: `<table class="block-grid up-3"><tbody><tr>x</tr></tbody></table>`,
		},
		{
			name: "raw is copied as is",
			in:   `<raw><row>literal</row></raw>`,
			want: `<row>literal</row>`,
		},
	}

	k := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := k.Transform(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTransform_NestedRowSuppressesExpander(t *testing.T) {
	out, err := New().Transform(`<row><columns><row><columns large="6">x</columns></row></columns></row>`)
	require.NoError(t, err)

	assert.Contains(t, out, `<th class="small-12 large-12 columns first last"><table><tbody><tr><th><table class="row">`)
	assert.NotContains(t, out, `expander`)
}

func TestTransform_PreservesExpressions(t *testing.T) {
	in := `@extends('emails.layout')
<container>
  <button href="{{ route('verify', ['id' => $user->id]) }}">{!! __('Verify') !!}</button>
  <p>{{ $user->name }} & {{ $user->email }}</p>
</container>`

	out, err := New().Transform(in)
	require.NoError(t, err)
	assert.Contains(t, out, `@extends(&#39;emails.layout&#39;)`)

	out = Unescape(out)
	assert.Contains(t, out, `@extends('emails.layout')`)
	assert.Contains(t, out, `href="{{ route('verify', ['id' => $user->id]) }}"`)
	assert.Contains(t, out, `{!! __('Verify') !!}</a>`)
	assert.Contains(t, out, `<p>{{ $user->name }} &amp; {{ $user->email }}</p>`)
}

func TestTransform_ColumnCount(t *testing.T) {
	out, err := New(WithColumnCount(16)).Transform(`<row><columns>A</columns><columns>B</columns></row>`)
	require.NoError(t, err)
	assert.Contains(t, out, `small-16 large-8 columns first`)
}

func TestUnescape(t *testing.T) {
	in := `$a-&gt;b ['k' =&gt; 1] &quot;q&quot; &apos;s&apos; &#34;d&#34; &#39;x&#39; &gt; &amp;`
	assert.Equal(t, `$a->b ['k' => 1] "q" 's' "d" 'x' &gt; &amp;`, Unescape(in))
}
