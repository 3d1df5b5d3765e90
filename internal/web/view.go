package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/edgard/botconsole/internal/backend"
	"github.com/edgard/botconsole/internal/console"
	"github.com/edgard/botconsole/internal/database"
)

// pageData is everything the index template renders.
type pageData struct {
	View         console.View
	BackendURL   string
	Activity     []activityRow
	DraftEnabled bool
	DraftError   string
	Intent       string
}

type activityRow struct {
	Time      string
	Operation string
	Outcome   string
	Detail    string
	Duration  string
}

func newActivityRows(activities []database.Activity) []activityRow {
	rows := make([]activityRow, 0, len(activities))
	for _, a := range activities {
		var detail []string
		if a.Method != "" {
			detail = append(detail, a.Method)
		}
		if a.ErrorCode != "" {
			detail = append(detail, a.ErrorCode)
		}
		if a.HTTPStatus != 0 {
			detail = append(detail, fmt.Sprintf("HTTP %d", a.HTTPStatus))
		}
		rows = append(rows, activityRow{
			Time:      a.CreatedAt().Format(time.TimeOnly),
			Operation: a.Operation,
			Outcome:   a.Outcome,
			Detail:    strings.Join(detail, " "),
			Duration:  (time.Duration(a.DurationMS) * time.Millisecond).String(),
		})
	}
	return rows
}

var templateFuncs = template.FuncMap{
	"prettyJSON":  prettyJSON,
	"yesNo":       yesNo,
	"displayName": displayName,
	"atUsername":  atUsername,
	"commandLine": commandLine,
}

// prettyJSON renders raw as JSON indented by two spaces.
func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func displayName(u *backend.BotInfo) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func atUsername(u *backend.BotInfo) string {
	if u == nil || u.Username == "" {
		return ""
	}
	return "@" + u.Username
}

func commandLine(c backend.Command) string {
	return "/" + c.Command + " — " + c.Description
}
