package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"promptboard/internal/domain"
	"promptboard/internal/engine"
)

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func yesNo(b bool) string {
	if b {
		return text.FgGreen.Sprint("yes")
	}
	return "no"
}

func printInterpretation(res engine.Interpretation) {
	tw := newTable()
	tw.SetTitle(res.Prompt)
	tw.AppendRows([]table.Row{
		{"Kanban board", yesNo(res.Plan.ShowKanban)},
		{"Status filter", res.Plan.FilterStatus.String()},
		{"Priority selector", yesNo(res.Plan.ShowPrioritySelector)},
		{"Team assignment", yesNo(res.Plan.ShowTeamAssignment)},
	})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Processed by", res.ProcessingMethod})
	if res.HistoryID != "" {
		tw.AppendRow(table.Row{"History id", res.HistoryID})
	}
	tw.Render()
}

func printTasks(tasks []domain.Task) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Updated"})
	for _, t := range tasks {
		assignee := ""
		if t.AssigneeID != nil {
			assignee = *t.AssigneeID
		}
		tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, assignee, t.UpdatedAt})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", len(tasks))})
	tw.Render()
}

func printSummary(counts map[string]int) {
	tw := newTable()
	tw.AppendHeader(table.Row{"Status", "Tasks"})
	total := 0
	for _, status := range domain.TaskStatuses {
		tw.AppendRow(table.Row{status, counts[status]})
		total += counts[status]
	}
	tw.AppendFooter(table.Row{"total", total})
	tw.Render()
}

func printHistory(recs []domain.IntentRecord) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Prompt", "Filter", "Board", "Method", "Applied", "Created"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 48}})
	for _, r := range recs {
		tw.AppendRow(table.Row{r.ID, r.Prompt, r.Plan.FilterStatus.String(), yesNo(r.Plan.ShowKanban), r.ProcessingMethod, yesNo(r.Applied), r.CreatedAt})
	}
	tw.Render()
}

func printEvents(evts []domain.Event) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor"})
	for _, e := range evts {
		tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + ":" + e.EntityID, e.ActorID})
	}
	tw.Render()
}
