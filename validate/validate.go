// Command validate checks game mode JSON files. For each file it checks:
//   - JSON structure and required fields (id, title, rows, cols, objective)
//   - The id matches the file name
//   - Board sides within the supported range
//   - An objective that fits on the board
//   - How many lines of the objective's length fit on each axis
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/connect-x/game/engine"
)

// ModeFile mirrors the JSON schema of a mode file. Fields are pointers so
// missing keys can be told apart from zero values.
type ModeFile struct {
	ID          *string `json:"id"`
	Title       *string `json:"title"`
	Description string  `json:"description"`
	Rows        *int    `json:"rows"`
	Cols        *int    `json:"cols"`
	Objective   *int    `json:"objective"`
	Template    bool    `json:"template"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages holds informational lines; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// validateMode loads and validates a single mode JSON file
func validateMode(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var file ModeFile
	if err := json.Unmarshal(data, &file); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	// Required fields
	if file.ID == nil {
		result.fail("Missing required field: id")
	}
	if file.Title == nil {
		result.fail("Missing required field: title")
	}
	if file.Rows == nil {
		result.fail("Missing required field: rows")
	}
	if file.Cols == nil {
		result.fail("Missing required field: cols")
	}
	if file.Objective == nil {
		result.fail("Missing required field: objective")
	}
	if !result.Valid {
		return result
	}

	if file.Template {
		result.fail("Mode %q is marked as a template and cannot be played", *file.ID)
		return result
	}

	expectedID := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if *file.ID != expectedID {
		result.fail("id %q does not match file name %q", *file.ID, expectedID)
	}

	mode := engine.GameMode{
		ID:          *file.ID,
		Title:       *file.Title,
		Description: file.Description,
		Rows:        *file.Rows,
		Cols:        *file.Cols,
		Objective:   *file.Objective,
	}
	if err := engine.ValidateMode(mode); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "mode validation: "))
		return result
	}
	if !result.Valid {
		return result
	}

	// Line coverage per axis
	counts := engine.WindowCounts(mode.Rows, mode.Cols, mode.Objective)

	result.Messages = append(result.Messages, fmt.Sprintf("✓ Title: %s", mode.Title))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Board: %dx%d", mode.Rows, mode.Cols))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Objective: %d in a row", mode.Objective))
	for axis, n := range counts {
		if n == 0 {
			result.Messages = append(result.Messages, fmt.Sprintf("! No %s lines of %d", engine.AxisNames[axis], mode.Objective))
			continue
		}
		result.Messages = append(result.Messages, fmt.Sprintf("✓ %s lines: %d", engine.AxisNames[axis], n))
	}

	return result
}

// validateDir validates every *.json file in dir and prints a report. It
// returns an error when any file is invalid.
func validateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("error finding mode files: %w", err)
	}
	if len(files) == 0 {
		fmt.Printf("No mode files found in %s\n", dir)
		return nil
	}

	allValid := true
	for _, file := range files {
		result := validateMode(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				fmt.Println("  ❌ " + msg)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return cli.Exit("❌ Some modes have errors", 1)
	}
	fmt.Println("✅ All modes are valid!")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate game mode JSON files",
		ArgsUsage: "[modes-dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "modes-dir",
				Value:   "../modes",
				Usage:   "directory containing <id>.json mode files",
				Sources: cli.EnvVars("MODES_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("modes-dir")
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}
			return validateDir(dir)
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
