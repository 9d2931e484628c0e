// Package output renders API responses for the terminal.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

// Print writes payload to w as json, table, plain, md or quiet (ids only).
// An empty format picks table on a terminal and json otherwise.
func Print(w io.Writer, payload map[string]any, format string, quiet bool) error {
	if quiet {
		format = "quiet"
	}
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = DefaultFormat()
	}

	switch format {
	case "json":
		return PrintJSON(w, payload)
	case "table":
		return printTable(w, payload)
	case "plain":
		return printPlain(w, payload)
	case "md":
		return printMarkdown(w, payload)
	case "quiet":
		return printQuiet(w, payload)
	default:
		return errors.New("invalid --format value")
	}
}

func PrintJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTable(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "agents"):
		fmt.Fprintln(w, "ID\tCHANNEL\tMISSION\tCREATED")
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["channel_name"]), clip(str(row["mission"]), 48), str(row["created_at"]))
		}
	case hasKey(payload, "posts"):
		fmt.Fprintln(w, "ID\tCHANNEL\tKIND\tTITLE\tLIKES\tCOMMENTS\tPUBLISHED")
		for _, row := range toObjectSlice(payload["posts"]) {
			eng := toObject(row["engagement"])
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["channel_name"]), str(row["kind"]), str(row["title"]),
				str(eng["likes"]), str(eng["comment_count"]), str(row["published_at"]))
		}
	case hasKey(payload, "runs"):
		fmt.Fprintln(w, "ID\tAGENT\tSTATUS\tCREATED\tERROR")
		for _, row := range toObjectSlice(payload["runs"]) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["agent_id"]), str(row["status"]), str(row["created_at"]), str(row["error"]))
		}
	case hasKey(payload, "webhooks"):
		fmt.Fprintln(w, "ID\tURL\tEVENTS\tACTIVE")
		for _, row := range toObjectSlice(payload["webhooks"]) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["url"]), joinList(row["events"]), str(row["active"]))
		}
	default:
		return PrintJSON(w, payload)
	}
	return nil
}

func printPlain(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "agents"):
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["id"]), str(row["channel_name"]))
		}
	case hasKey(payload, "posts"):
		for _, row := range toObjectSlice(payload["posts"]) {
			fmt.Fprintf(w, "%s %s %s\n", str(row["id"]), str(row["kind"]), str(row["title"]))
		}
	case hasKey(payload, "runs"):
		for _, row := range toObjectSlice(payload["runs"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["id"]), str(row["status"]))
		}
	case hasKey(payload, "webhooks"):
		for _, row := range toObjectSlice(payload["webhooks"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["id"]), str(row["url"]))
		}
	case hasKey(payload, "run_id") && hasKey(payload, "post_id"):
		fmt.Fprintf(w, "run=%s post=%s\n", str(payload["run_id"]), str(payload["post_id"]))
	default:
		return PrintJSON(w, payload)
	}
	return nil
}

func printMarkdown(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "agents"):
		for _, row := range toObjectSlice(payload["agents"]) {
			fmt.Fprintf(w, "- `%s` **%s**: %s\n", str(row["id"]), str(row["channel_name"]), str(row["mission"]))
		}
	case hasKey(payload, "posts"):
		for _, row := range toObjectSlice(payload["posts"]) {
			fmt.Fprintf(w, "- `%s` **%s** (%s) in %s\n",
				str(row["id"]), str(row["title"]), str(row["kind"]), str(row["channel_name"]))
		}
	case hasKey(payload, "runs"):
		for _, row := range toObjectSlice(payload["runs"]) {
			fmt.Fprintf(w, "- `%s` %s at %s\n", str(row["id"]), str(row["status"]), str(row["created_at"]))
		}
	default:
		return PrintJSON(w, payload)
	}
	return nil
}

func printQuiet(w io.Writer, payload map[string]any) error {
	for _, key := range []string{"agents", "posts", "runs", "webhooks"} {
		if hasKey(payload, key) {
			for _, row := range toObjectSlice(payload[key]) {
				fmt.Fprintln(w, str(row["id"]))
			}
			return nil
		}
	}
	for _, key := range []string{"post_id", "id"} {
		if v, ok := payload[key]; ok {
			fmt.Fprintln(w, str(v))
			return nil
		}
	}
	return PrintJSON(w, payload)
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func toObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func toObjectSlice(v any) []map[string]any {
	in, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(in))
	for _, item := range in {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out
}

func joinList(v any) string {
	in, _ := v.([]any)
	parts := make([]string, 0, len(in))
	for _, item := range in {
		parts = append(parts, str(item))
	}
	return strings.Join(parts, ",")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
