package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bold",
			input: "<p>Hello <strong>World</strong></p>",
			want:  "Hello **World**",
		},
		{
			name:  "b tag",
			input: "<p><b>Art. 1</b> Obiect</p>",
			want:  "**Art. 1** Obiect",
		},
		{
			name:  "centered by style",
			input: `<p style="text-align: center">CONTRACT</p><p>Corp</p>`,
			want:  "**CENTER**CONTRACT\n\nCorp",
		},
		{
			name:  "centered by align",
			input: `<h1 align="center">Titlu</h1>`,
			want:  "**CENTER**Titlu",
		},
		{
			name:  "center element",
			input: `<center>Titlu</center>`,
			want:  "**CENTER**Titlu",
		},
		{
			name:  "line break",
			input: "<p>a<br>b</p>",
			want:  "a\nb",
		},
		{
			name:  "bold across line break",
			input: "<p><b>a<br>b</b></p>",
			want:  "**a**\n**b**",
		},
		{
			name:  "table dropped",
			input: "<p>x</p><table><tr><td>gone</td></tr></table><p>y</p>",
			want:  "x\n\ny",
		},
		{
			name:  "nested table dropped",
			input: "<table><tr><td><table><tr><td>in</td></tr></table>out</td></tr></table><p>after</p>",
			want:  "after",
		},
		{
			name:  "script and style dropped",
			input: "<style>p{color:red}</style><p>ok</p><script>alert(1)</script>",
			want:  "ok",
		},
		{
			name:  "entities decoded",
			input: "<p>A &amp; B &lt;C&gt; &quot;q&quot; &#39;s&#39;&nbsp;end</p>",
			want:  `A & B <C> "q" 's' end`,
		},
		{
			name:  "whitespace collapsed",
			input: "<p>a   \t b\n   c</p>",
			want:  "a b c",
		},
		{
			name:  "blank paragraphs capped",
			input: "<p>a</p><p></p><p>   </p><br><br><p>b</p>",
			want:  "a\n\nb",
		},
		{
			name:  "diacritics preserved",
			input: "<p>ăâîșț ĂÂÎȘȚ</p>",
			want:  "ăâîșț ĂÂÎȘȚ",
		},
		{
			name:  "plain text",
			input: "Nr. 42",
			want:  "Nr. 42",
		},
		{
			name:  "empty bold dropped",
			input: "<p>a <strong></strong>b</p>",
			want:  "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestRepairEncoding(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "windows-1252 mojibake", input: "È™coalÄƒ È›arÄƒ", want: "școală țară"},
		{name: "circumflex", input: "Ã®n Ã¢n", want: "în ân"},
		{name: "uppercase", input: "ÈšARA È˜I", want: "ȚARA ȘI"},
		{name: "cedilla forms", input: "ÅŸ Å£", want: "ş ţ"},
		{name: "decomposed comma below", input: "s\u0326i t\u0326", want: "\u0219i \u021b"},
		{name: "clean text untouched", input: "ăâîșț ĂÂÎȘȚ", want: "ăâîșț ĂÂÎȘȚ"},
		{name: "ascii untouched", input: "Contract nr. 42", want: "Contract nr. 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairEncoding(tt.input))
		})
	}
}

func TestRenderPreviewHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "identity",
			input: `<p class="x">Nr. 42 &amp; <strong>ăș</strong></p>`,
			want:  `<p class="x">Nr. 42 &amp; <strong>ăș</strong></p>`,
		},
		{
			name:  "script removed",
			input: `<p>a</p><script>alert("x")</script><p>b</p>`,
			want:  `<p>a</p><p>b</p>`,
		},
		{
			name:  "event attributes removed",
			input: `<p onclick="steal()" class="c">a</p>`,
			want:  `<p class="c">a</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderPreviewHTML(tt.input))
		})
	}
}
