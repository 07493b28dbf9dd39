package status

import (
	"html/template"
	"io"
)

const blocksTmpl = `{{range .}}<table class="table table-bordered" style="width:100%; margin-bottom: 20px;">
<thead><tr style="background-color: {{.Color}};">{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody><tr>{{range .Cells}}<td{{if .Redacted}} class="redacted"{{end}}>{{.Text}}</td>{{end}}</tr></tbody>
</table>
{{end}}`

var blocksHTML = template.Must(template.New("blocks").Parse(blocksTmpl))

// WriteHTML writes the blocks as a sequence of tables for the status modal.
// Placing them in the page is left to the caller.
func WriteHTML(w io.Writer, blocks []Block) error {
	return blocksHTML.Execute(w, blocks)
}
