package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jsonsql-dev/jsonsql"
	"github.com/jsonsql-dev/jsonsql/internal/cli/config"
	"github.com/jsonsql-dev/jsonsql/internal/cli/ui"
)

var (
	policyInitForce    bool
	policyShowConfig   string
	policyShowNoColor  bool
	policyConfigOutput string
)

// NewPolicyCommand creates the policy command group
func NewPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and scaffold entity policies",
	}

	cmd.AddCommand(newPolicyInitCommand())
	cmd.AddCommand(newPolicyShowCommand())

	return cmd
}

func newPolicyInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a jsonsql.yaml policy file",
		Long: `Walk through the entity policy interactively and write the result
to jsonsql.yaml in the working directory.`,
		RunE: runPolicyInit,
	}

	cmd.Flags().BoolVarP(&policyInitForce, "force", "f", false, "Overwrite an existing jsonsql.yaml")
	cmd.Flags().StringVarP(&policyConfigOutput, "output", "o", "jsonsql.yaml", "Output file path")

	return cmd
}

func newPolicyShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the active policy as a table",
		RunE:  runPolicyShow,
	}

	cmd.Flags().StringVarP(&policyShowConfig, "config", "c", "", "Path to the policy config file")
	cmd.Flags().BoolVar(&policyShowNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runPolicyInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(policyConfigOutput); err == nil && !policyInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", policyConfigOutput)
	}

	var queries []string
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "Allowed query verbs:",
		Options: []string{"SELECT", "INSERT", "UPDATE", "DELETE"},
		Default: []string{"SELECT"},
	}, &queries, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	var itemsInput string
	if err := survey.AskOne(&survey.Input{
		Message: "Allowed SELECT items (comma separated, * for any):",
		Default: "*",
	}, &itemsInput); err != nil {
		return err
	}

	var connections []string
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "Allowed connection keywords:",
		Options: []string{"WHERE", "HAVING"},
		Default: []string{"WHERE"},
	}, &connections); err != nil {
		return err
	}

	tables, columns, err := askTables()
	if err != nil {
		return err
	}

	var withService bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Configure the HTTP service?",
		Default: false,
	}, &withService); err != nil {
		return err
	}

	doc := map[string]interface{}{
		"policy": buildPolicyDoc(queries, splitList(itemsInput), connections, tables, columns),
	}

	if withService {
		server, err := askServer()
		if err != nil {
			return err
		}
		doc["server"] = server
	}

	encoded, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}

	if err := os.WriteFile(policyConfigOutput, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", policyConfigOutput, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("wrote "+policyConfigOutput, false))
	return nil
}

// askTables collects table declarations until the user stops
func askTables() ([]interface{}, map[string]string, error) {
	var tables []interface{}
	columns := map[string]string{}

	for {
		var name string
		if err := survey.AskOne(&survey.Input{
			Message: "Table name (empty to finish):",
		}, &name); err != nil {
			return nil, nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			break
		}

		var colsInput string
		if err := survey.AskOne(&survey.Input{
			Message: fmt.Sprintf("Columns for %s (name:kind, comma separated; kinds: string, integer, float, boolean, any):", name),
		}, &colsInput); err != nil {
			return nil, nil, err
		}

		cols := splitList(colsInput)
		if len(cols) == 0 {
			tables = append(tables, name)
			continue
		}

		var colNames []interface{}
		for _, col := range cols {
			parts := strings.SplitN(col, ":", 2)
			colName := strings.TrimSpace(parts[0])
			colNames = append(colNames, colName)
			if len(parts) == 2 {
				kind := strings.TrimSpace(parts[1])
				if _, err := jsonsql.ParseValueKind(kind); err != nil {
					return nil, nil, fmt.Errorf("table %s: %w", name, err)
				}
				columns[colName] = kind
			}
		}

		tables = append(tables, map[string]interface{}{name: colNames})
	}

	return tables, columns, nil
}

// askServer collects the optional HTTP service settings
func askServer() (map[string]interface{}, error) {
	var port int
	if err := survey.AskOne(&survey.Input{
		Message: "Service port:",
		Default: "8980",
	}, &port); err != nil {
		return nil, err
	}

	var authMode string
	if err := survey.AskOne(&survey.Select{
		Message: "Authentication mode:",
		Options: []string{"none", "token", "key"},
		Default: "none",
	}, &authMode); err != nil {
		return nil, err
	}

	server := map[string]interface{}{
		"port": port,
		"auth": map[string]interface{}{"mode": authMode},
	}

	if authMode == "token" {
		var secret string
		if err := survey.AskOne(&survey.Password{
			Message: "JWT secret:",
		}, &secret, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
		server["auth"].(map[string]interface{})["jwt_secret"] = secret
	}

	return server, nil
}

// buildPolicyDoc assembles the policy section of the YAML document
func buildPolicyDoc(queries, items, connections []string, tables []interface{}, columns map[string]string) map[string]interface{} {
	policy := map[string]interface{}{
		"queries":     queries,
		"items":       items,
		"connections": connections,
	}
	if len(tables) > 0 {
		policy["tables"] = tables
	}
	if len(columns) > 0 {
		policy["columns"] = columns
	}
	return policy
}

// splitList splits a comma separated input into trimmed entries
func splitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(policyShowConfig)
	if err != nil {
		return err
	}

	policy, err := jsonsql.NewPolicy(cfg.Policy)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	snapshot := policy.Snapshot()

	title := color.New(color.FgCyan, color.Bold)
	if policyShowNoColor {
		title.DisableColor()
	}

	title.Fprintln(out, "Allowed entities")
	allowTable := ui.NewTable(out, []string{"CATEGORY", "ALLOWED"}, policyShowNoColor)
	allowTable.AddRow("queries", joinOrDash(policy.AllowedQueries()))
	allowTable.AddRow("items", joinOrDash(policy.AllowedItems()))
	allowTable.AddRow("tables", joinOrDash(policy.AllowedTables()))
	allowTable.AddRow("connections", joinOrDash(policy.AllowedConnections()))
	allowTable.AddRow("join types", joinOrDash(policy.AllowedJoinTypes()))
	allowTable.Render()

	if len(snapshot.Columns) > 0 {
		fmt.Fprintln(out)
		title.Fprintln(out, "Column kinds")
		colTable := ui.NewTable(out, []string{"COLUMN", "KIND"}, policyShowNoColor)
		for _, column := range policy.AllowedColumns() {
			colTable.AddRow(column, policy.ColumnKind(column).String())
		}
		colTable.Render()
	}

	denied := deniedRows(snapshot.Denied)
	if len(denied) > 0 {
		fmt.Fprintln(out)
		title.Fprintln(out, "Denied entities")
		denyTable := ui.NewTable(out, []string{"CATEGORY", "DENIED"}, policyShowNoColor)
		for _, row := range denied {
			denyTable.AddRow(row[0], row[1])
		}
		denyTable.Render()
	}

	return nil
}

// joinOrDash renders a list, or a dash when the category is empty
func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// deniedRows flattens the deny lists into table rows, skipping empty ones
func deniedRows(denied jsonsql.DeniedConfig) [][2]string {
	var rows [][2]string
	add := func(category string, values []string) {
		if len(values) > 0 {
			rows = append(rows, [2]string{category, strings.Join(values, ", ")})
		}
	}
	add("queries", denied.Queries)
	add("items", denied.Items)
	add("tables", denied.Tables)
	add("connections", denied.Connections)
	add("join types", denied.JoinTypes)
	add("columns", denied.Columns)
	return rows
}
