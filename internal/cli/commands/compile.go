package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsonsql-dev/jsonsql"
	"github.com/jsonsql-dev/jsonsql/internal/cli/config"
	"github.com/jsonsql-dev/jsonsql/internal/cli/ui"
)

var (
	compileConfigPath string
	compileValues     bool
	compileJSON       bool
	compileParamsOnly bool
	compileNoColor    bool
)

// NewCompileCommand creates the compile command
func NewCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a JSON query description into SQL",
		Long: `Compile a JSON query description into a parameterized SQL statement.

The query is read from the given file, or from stdin when no file is
given (or the file is "-"). The entity policy comes from jsonsql.yaml
in the working directory unless --config points elsewhere.

Examples:
  jsonsql compile query.json
  cat query.json | jsonsql compile
  jsonsql compile query.json --values
  jsonsql compile query.json --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompile,
	}

	cmd.Flags().StringVarP(&compileConfigPath, "config", "c", "", "Path to the policy config file")
	cmd.Flags().BoolVar(&compileValues, "values", false, "Materialize parameters into the statement")
	cmd.Flags().BoolVar(&compileJSON, "json", false, "Emit a JSON envelope instead of plain output")
	cmd.Flags().BoolVar(&compileParamsOnly, "params-only", false, "Print only the parameter list as JSON")
	cmd.Flags().BoolVar(&compileNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(compileConfigPath)
	if err != nil {
		return err
	}

	policy, err := jsonsql.NewPolicy(cfg.Policy)
	if err != nil {
		return err
	}
	compiler := jsonsql.New(policy)

	body, err := readQueryInput(cmd, args)
	if err != nil {
		return err
	}

	req, err := jsonsql.ParseRequest(body)
	if err != nil {
		return err
	}

	if compileValues {
		sql, cerr := compiler.CompileWithValues(req)
		if cerr != nil {
			return reportCompileFailure(cmd, policy, cerr)
		}
		return printCompileResult(cmd, sql, []interface{}{})
	}

	sql, params, cerr := compiler.Compile(req)
	if cerr != nil {
		return reportCompileFailure(cmd, policy, cerr)
	}
	if params == nil {
		params = []interface{}{}
	}
	return printCompileResult(cmd, sql, params)
}

// readQueryInput reads the query body from the file argument or stdin
func readQueryInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}

	body, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return body, nil
}

// printCompileResult writes the compiled statement in the selected format
func printCompileResult(cmd *cobra.Command, sql string, params []interface{}) error {
	out := cmd.OutOrStdout()

	switch {
	case compileParamsOnly:
		return json.NewEncoder(out).Encode(params)
	case compileJSON:
		return json.NewEncoder(out).Encode(map[string]interface{}{
			"sql":    sql,
			"params": params,
		})
	default:
		fmt.Fprintln(out, sql)
		if len(params) > 0 {
			encoded, err := json.Marshal(params)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "params: %s\n", encoded)
		}
		return nil
	}
}

// reportCompileFailure prints the refusal with fuzzy suggestions drawn
// from the allow list the offending entity was checked against
func reportCompileFailure(cmd *cobra.Command, policy *jsonsql.Policy, cerr error) error {
	compileErr := jsonsql.AsError(cerr)

	ui.WriteDenial(cmd.ErrOrStderr(), ui.DenialOptions{
		Kind:        denialKind(compileErr.Kind),
		Message:     compileErr.Message,
		Suggestions: suggestionsFor(policy, compileErr),
		HelpCommands: []string{
			"See the active policy: jsonsql policy show",
		},
		NoColor: compileNoColor,
	})

	return errors.New("compilation failed")
}

// denialKind maps a failure kind to its display header
func denialKind(kind jsonsql.ErrorKind) string {
	return strings.ReplaceAll(kind.String(), "_", " ")
}

// suggestionsFor picks near misses for the denied entity from the
// allow list the diagnostic refers to
func suggestionsFor(policy *jsonsql.Policy, compileErr *jsonsql.Error) []string {
	if compileErr.Kind != jsonsql.ErrPolicyViolation || compileErr.Entity == "" {
		return nil
	}

	var allowed []string
	switch {
	case strings.HasPrefix(compileErr.Message, "query not allowed"):
		allowed = policy.AllowedQueries()
	case strings.HasPrefix(compileErr.Message, "table not allowed"):
		allowed = policy.AllowedTables()
	case strings.HasPrefix(compileErr.Message, "connection not allowed"):
		allowed = policy.AllowedConnections()
	case strings.HasPrefix(compileErr.Message, "JOIN type not allowed"):
		allowed = policy.AllowedJoinTypes()
	case strings.HasPrefix(compileErr.Message, "item not allowed"):
		allowed = policy.AllowedItems()
	default:
		allowed = policy.AllowedColumns()
	}

	return ui.Suggest(compileErr.Entity, allowed)
}
