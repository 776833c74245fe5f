package output

import (
	"github.com/bitrise-steplib/steps-testrail/junit"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	row := table.Row{}
	for _, column := range header {
		row = append(row, text.FgHiCyan.Sprint(column))
	}
	t.AppendHeader(row)
	return t
}

func syncTable(summary SyncSummary) string {
	t := newTable("", "CREATED", "EXISTING")
	t.AppendRow(table.Row{"Sections", text.FgGreen.Sprint(summary.SectionsCreated), summary.SectionsExisting})
	t.AppendRow(table.Row{"Cases", text.FgGreen.Sprint(summary.CasesCreated), summary.CasesExisting})
	return t.Render()
}

func runTable(summary RunSummary) string {
	t := newTable("RESULT", "COUNT")
	t.AppendRow(table.Row{"Run", summary.RunURL})
	t.AppendSeparator()
	t.AppendRow(table.Row{text.FgGreen.Sprint(junit.OutcomePassed), summary.Outcomes[junit.OutcomePassed]})
	t.AppendRow(table.Row{text.FgRed.Sprint(junit.OutcomeFailed), summary.Outcomes[junit.OutcomeFailed]})
	t.AppendRow(table.Row{text.FgRed.Sprint(junit.OutcomeError), summary.Outcomes[junit.OutcomeError]})
	t.AppendRow(table.Row{text.FgYellow.Sprint(junit.OutcomeSkipped), summary.Outcomes[junit.OutcomeSkipped]})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Submitted", summary.Submitted})
	t.AppendRow(table.Row{"Unmapped", summary.Unmapped})
	return t.Render()
}
