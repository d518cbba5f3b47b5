package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary  = "Resumo"
	SheetStudents = "Alunos"
	SheetClasses  = "Turmas"
	SheetWeekdays = "Dias"
)

// ContentTypeXLSX is the media type of exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook renders general statistics as a spreadsheet.
func Workbook(g *GeneralStats) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Período", g.Period.Start.String() + " a " + g.Period.End.String()},
		{"Alunos ativos", g.Overview.TotalStudents},
		{"Turmas ativas", g.Overview.TotalClasses},
		{"Registros", g.Overview.TotalAttendances},
		{"Presenças", g.Overview.PresentCount},
		{"Faltas", g.Overview.AbsentCount},
		{"Frequência (%)", g.Overview.OverallFrequency},
		{"Crianças", g.AgeDistribution.Children},
		{"Adolescentes", g.AgeDistribution.Teens},
		{"Adultos", g.AgeDistribution.Adults},
		{"Idade desconhecida", g.AgeDistribution.Unknown},
	}
	if err := writeRows(f, SheetSummary, nil, summary); err != nil {
		return nil, err
	}

	students := make([][]any, 0, len(g.TopStudents))
	for _, s := range g.TopStudents {
		students = append(students, []any{s.Student.ID, s.Student.Name, s.TotalClasses, s.PresentCount, s.FrequencyRate})
	}
	if err := addSheet(f, SheetStudents, []string{"ID", "Aluno", "Aulas", "Presenças", "Frequência (%)"}, students); err != nil {
		return nil, err
	}

	classes := make([][]any, 0, len(g.ClassFrequencies))
	for _, c := range g.ClassFrequencies {
		classes = append(classes, []any{c.Class.ID, c.Class.Name, c.TotalAttendances, c.PresentCount, c.FrequencyRate})
	}
	if err := addSheet(f, SheetClasses, []string{"ID", "Turma", "Registros", "Presenças", "Frequência (%)"}, classes); err != nil {
		return nil, err
	}

	days := make([][]any, 0, len(g.WeekdayDistribution))
	for _, d := range g.WeekdayDistribution {
		days = append(days, []any{d.Day, d.Present, d.Absent, d.Total})
	}
	if err := addSheet(f, SheetWeekdays, []string{"Dia", "Presenças", "Faltas", "Total"}, days); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook renders g and writes the XLSX bytes to w.
func WriteWorkbook(w io.Writer, g *GeneralStats) error {
	f, err := Workbook(g)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// ExportFileName names an export after its window.
func ExportFileName(w Window) string {
	return fmt.Sprintf("estatisticas_%s_%s.xlsx", w.Start.String(), w.End.String())
}

func addSheet(f *excelize.File, name string, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, headers, rows)
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	start := 1
	if len(headers) > 0 {
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}
		start = 2
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, start+r)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
