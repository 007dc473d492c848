package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/semihalev/quackdb"
)

const cliVersion = "0.1.0"

var (
	dbPath  string
	output  string
	timer   bool
	verbose bool
)

// fileConfig mirrors ~/.quack.yaml. Command-line flags win over file values.
type fileConfig struct {
	Database  string `yaml:"database"`
	Output    string `yaml:"output"`
	MaxMemory string `yaml:"max_memory"`
	Threads   int    `yaml:"threads"`
}

var config fileConfig

var rootCmd = &cobra.Command{
	Use:   "quack [sql]",
	Short: "Command-line shell for DuckDB databases",
	Long: `quack runs SQL against a DuckDB database file (or an in-memory one)
and prints results as a table, CSV or JSON.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadFileConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runSQL(args[0])
	},
}

var runCmd = &cobra.Command{
	Use:   "run <sql>",
	Short: "Execute a SQL statement and print its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSQL(args[0])
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDatabase()
		if err != nil {
			return err
		}
		defer conn.Close()

		cr, err := conn.QueryColumnar("SHOW TABLES")
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
		names, _, err := quackdb.ColumnAs[string](cr, 0)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print quack and engine versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("quack %s\n", cliVersion)
		v, err := quackdb.EngineVersion()
		if err != nil {
			return fmt.Errorf("engine library not available: %w", err)
		}
		fmt.Printf("duckdb %s\n", v)
		return nil
	},
}

func runSQL(query string) error {
	conn, err := openDatabase()
	if err != nil {
		return err
	}
	defer conn.Close()

	started := time.Now()

	res, err := conn.Query(query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer res.Close()

	if res.ColumnCount() == 0 {
		fmt.Printf("OK, %d rows changed\n", res.RowsChanged())
	} else {
		cr, err := res.Columnar()
		if err != nil {
			return fmt.Errorf("failed to read result: %w", err)
		}
		if err := printResult(cr); err != nil {
			return err
		}
	}

	if timer {
		fmt.Fprintf(os.Stderr, "elapsed: %s\n", time.Since(started).Round(time.Microsecond))
	}
	return nil
}

func printResult(cr *quackdb.ColumnarResult) error {
	switch output {
	case "table":
		printTable(cr)
		return nil
	case "csv":
		return printCSV(cr)
	case "json":
		return printJSON(cr)
	default:
		return fmt.Errorf("unknown output format %q (want table, csv or json)", output)
	}
}

func printTable(cr *quackdb.ColumnarResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cr.ColumnNames, "\t"))
	for row := 0; row < cr.RowCount; row++ {
		cells := make([]string, len(cr.ColumnNames))
		for col := range cells {
			cells[col] = cellString(cr, col, row)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d rows)\n", cr.RowCount)
}

func printCSV(cr *quackdb.ColumnarResult) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(cr.ColumnNames); err != nil {
		return err
	}
	for row := 0; row < cr.RowCount; row++ {
		cells := make([]string, len(cr.ColumnNames))
		for col := range cells {
			cells[col] = cellString(cr, col, row)
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printJSON(cr *quackdb.ColumnarResult) error {
	rows := make([]map[string]any, cr.RowCount)
	for row := range rows {
		m := make(map[string]any, len(cr.ColumnNames))
		for col, name := range cr.ColumnNames {
			m[name] = cellValue(cr, col, row)
		}
		rows[row] = m
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func cellString(cr *quackdb.ColumnarResult, col, row int) string {
	if cr.NullMasks[col][row] {
		return "NULL"
	}
	switch vals := cr.Columns[col].(type) {
	case []bool:
		return strconv.FormatBool(vals[row])
	case []int64:
		return strconv.FormatInt(vals[row], 10)
	case []uint64:
		return strconv.FormatUint(vals[row], 10)
	case []float64:
		return strconv.FormatFloat(vals[row], 'g', -1, 64)
	case []string:
		return vals[row]
	case [][]byte:
		return fmt.Sprintf("\\x%x", vals[row])
	case []time.Time:
		return vals[row].Format(time.RFC3339Nano)
	case []*big.Int:
		return vals[row].String()
	default:
		return ""
	}
}

func cellValue(cr *quackdb.ColumnarResult, col, row int) any {
	if cr.NullMasks[col][row] {
		return nil
	}
	switch vals := cr.Columns[col].(type) {
	case []bool:
		return vals[row]
	case []int64:
		return vals[row]
	case []uint64:
		return vals[row]
	case []float64:
		return vals[row]
	case []string:
		return vals[row]
	case [][]byte:
		return fmt.Sprintf("%x", vals[row])
	case []time.Time:
		return vals[row].Format(time.RFC3339Nano)
	case []*big.Int:
		return vals[row].String()
	default:
		return nil
	}
}

func openDatabase() (*quackdb.Connection, error) {
	var options []quackdb.ConnectionOption
	if config.MaxMemory != "" {
		options = append(options, quackdb.WithMaxMemory(config.MaxMemory))
	}
	if config.Threads > 0 {
		options = append(options, quackdb.WithThreads(config.Threads))
	}
	if verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger().Level(zerolog.DebugLevel)
		options = append(options, quackdb.WithLogger(logger))
	}

	conn, err := quackdb.NewConnection(dbPath, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	return conn, nil
}

func loadFileConfig(cmd *cobra.Command) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(home, ".quack.yaml"))
	if err != nil {
		return nil // no config file is fine
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("invalid ~/.quack.yaml: %w", err)
	}

	if config.Database != "" && !cmd.Flags().Changed("database") {
		dbPath = config.Database
	}
	if config.Output != "" && !cmd.Flags().Changed("output") {
		output = config.Output
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", ":memory:", "Database file path")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, csv, json)")
	rootCmd.PersistentFlags().BoolVar(&timer, "timer", false, "Print elapsed time to stderr")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose engine tracing")

	rootCmd.AddCommand(runCmd, tablesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
