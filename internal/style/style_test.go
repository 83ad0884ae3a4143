package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wane/wane-sub001/internal/errors"
)

func TestEncapsulate(t *testing.T) {
	children := Tags{"Child": "w-child", "TodoItem": "todo-item"}

	tests := []struct {
		name string
		css  string
		want string
	}{
		{
			name: "adjacent universal selectors",
			css:  "* + * { color: red; }",
			want: "[data-w-1]+[data-w-1]{color:red}",
		},
		{
			name: "host",
			css:  ":host { color: red }",
			want: "foo-cmp{color:red}",
		},
		{
			name: "host with argument",
			css:  ":host(.active) p { margin : 0 }",
			want: "foo-cmp.active p[data-w-1]{margin:0}",
		},
		{
			name: "type and class",
			css:  "p.lead, .a.b { font-weight: bold; color: blue }",
			want: "p[data-w-1].lead,.a[data-w-1].b{font-weight:bold;color:blue}",
		},
		{
			name: "combinators",
			css:  "ul > li ~ span  em { x: y }",
			want: "ul[data-w-1]>li[data-w-1]~span[data-w-1] em[data-w-1]{x:y}",
		},
		{
			name: "leading pseudo element",
			css:  "::before { content: 'a  b' }",
			want: "[data-w-1]::before{content:'a  b'}",
		},
		{
			name: "pseudo class after type",
			css:  "a:hover, #main::after, [hidden] { display: none }",
			want: "a[data-w-1]:hover,#main[data-w-1]::after,[hidden][data-w-1]{display:none}",
		},
		{
			name: "child component",
			css:  "Child { display: block } TodoItem + Unknown { gap: 1px }",
			want: "w-child[data-w-1]{display:block}todo-item[data-w-1]+Unknown[data-w-1]{gap:1px}",
		},
		{
			name: "comments removed",
			css:  "/* header */ h1 { color: red; /* inline */ }",
			want: "h1[data-w-1]{color:red}",
		},
		{
			name: "media recurses",
			css:  "@media (max-width: 600px) { .x { padding: 0 } }",
			want: "@media (max-width: 600px){.x[data-w-1]{padding:0}}",
		},
		{
			name: "keyframes pass through",
			css:  "@keyframes spin { from { opacity: 0 } to { opacity: 1 } }",
			want: "@keyframes spin{from{opacity:0}to{opacity:1}}",
		},
		{
			name: "font face and import",
			css:  "@import url(base.css);\n@font-face { font-family: Foo; src: url(data:font/woff;base64,AA) }",
			want: "@import url(base.css);@font-face{font-family:Foo;src:url(data:font/woff;base64,AA)}",
		},
		{
			name: "nth child argument is not a combinator",
			css:  "li:nth-child(2n + 1) { color: red }",
			want: "li[data-w-1]:nth-child(2n + 1){color:red}",
		},
		{
			name: "empty",
			css:  "  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encapsulate(tt.css, "foo-cmp", 1, children)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncapsulateErrors(t *testing.T) {
	tests := []struct {
		name string
		css  string
	}{
		{"unclosed block", "p { color: red"},
		{"stray closing brace", "p { color: red } }"},
		{"unclosed media", "@media screen { p { x: y }"},
		{"missing brace", "p color: red;"},
		{"nested block in declarations", "p { a { b: c } }"},
		{"invalid declaration", "p { color }"},
		{"unterminated comment", "p { x: y } /* open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encapsulate(tt.css, "foo-cmp", 3, nil)
			require.Error(t, err)
			assert.True(t, errors.HasErrorCode(err, errors.CodeInvalidStyle), err.Error())
		})
	}
}

func TestEncapsulateIds(t *testing.T) {
	got, err := Encapsulate("* { x: y }", "a-b", 42, nil)
	require.NoError(t, err)
	assert.Equal(t, "[data-w-42]{x:y}", got)
	assert.Equal(t, "data-w-42", Attribute(42))
}

func TestResolverFunc(t *testing.T) {
	r := ResolverFunc(func(name string) (string, bool) { return "x-" + name, name == "Card" })
	got, err := Encapsulate("Card {}", "host-cmp", 2, r)
	require.NoError(t, err)
	assert.Equal(t, "x-Card[data-w-2]{}", got)
}
