package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"projectdesk/internal/app"
	"projectdesk/internal/config"
	"projectdesk/internal/domain"
	"projectdesk/internal/listutil"
)

type projectView struct {
	Project   domain.Project       `json:"project"`
	Employees []domain.Employee    `json:"employees"`
	Todos     []domain.Todo        `json:"todos"`
	Notes     []domain.ProjectNote `json:"notes"`
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printProjects(items []domain.Project) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Code", "Name", "Department", "Start", "End", "Status", "Team"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ID, p.ProjectCode, p.Name, p.Department, p.StartDate, orDash(p.EndDate), p.Status.Label(), len(p.AssignedEmployeeIDs)})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d project(s)", len(items))})
	tw.Render()
	return nil
}

func printProjectView(v projectView) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	p := v.Project
	fmt.Printf("%s  %s\n", p.ProjectCode, p.Name)
	fmt.Printf("Status:     %s\n", p.Status.Label())
	fmt.Printf("Department: %s\n", p.Department)
	fmt.Printf("Dates:      %s .. %s\n", p.StartDate, orDash(p.EndDate))
	if p.Description != "" {
		fmt.Printf("\n%s\n", p.Description)
	}
	fmt.Println("\nTeam")
	if err := printEmployees(v.Employees); err != nil {
		return err
	}
	fmt.Println("\nTodos")
	if err := printTodos(v.Todos); err != nil {
		return err
	}
	fmt.Println("\nNotes")
	return printNotes(v.Notes)
}

func printSuggestions(items []domain.CodeSuggestion) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	for _, s := range items {
		fmt.Printf("%s  %s\n", s.Code, s.Name)
	}
	return nil
}

func printEmployees(items []domain.Employee) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Name", "Department", "Position", "Hired", "Status"})
	for _, e := range items {
		tw.AppendRow(table.Row{e.ID, e.FullName(), e.Department, e.Position, e.HireDate, e.Status})
	}
	tw.Render()
	return nil
}

func printTodos(items []domain.Todo) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Project", "Title", "Due", "Assignee", "Done"})
	for _, t := range items {
		done := ""
		if t.Completed {
			done = "x"
		}
		tw.AppendRow(table.Row{t.ID, t.ProjectID, t.Title, orDash(t.DueDate), t.CurrentAssigneeName, done})
	}
	tw.Render()
	return nil
}

func printHeldTodo(st app.Stores, id int64) error {
	todo, ok := findTodo(st.Todos.State().Todos, id)
	if !ok {
		return fmt.Errorf("todo %d not found", id)
	}
	return printTodos([]domain.Todo{todo})
}

func findTodo(items []domain.Todo, id int64) (domain.Todo, bool) {
	return listutil.FindByID(items, id)
}

func printHistory(t domain.Todo) error {
	if viper.GetBool("json") {
		return printJSON(t.AssignmentHistory)
	}
	fmt.Printf("%d  %s\n", t.ID, t.Title)
	tw := newTable()
	tw.AppendHeader(table.Row{"When", "Assigned to", "By"})
	for _, a := range t.AssignmentHistory {
		tw.AppendRow(table.Row{a.AssignedAt.Format("2006-01-02 15:04"), a.AssignedToName, a.AssignedByName})
	}
	tw.Render()
	return nil
}

func printNotes(items []domain.ProjectNote) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Updated", "Content"})
	for _, n := range items {
		tw.AppendRow(table.Row{n.ID, n.UpdatedAt.Format("2006-01-02 15:04"), n.Content})
	}
	tw.Render()
	return nil
}

func printConfig(cfg *config.Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(strings.TrimLeft(string(out), "\n"))
	return nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
