package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gosuri/uitable"
)

// render prints v as indented JSON when -o json is set, otherwise it calls table.
func (a *app) render(w io.Writer, v any, table func(t *uitable.Table)) error {
	switch a.flags.Output {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "", "table":
		t := uitable.New()
		t.MaxColWidth = 60
		t.Separator = "  "
		table(t)
		_, err := fmt.Fprintln(w, t.String())
		return err
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", a.flags.Output)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
