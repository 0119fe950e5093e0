package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourceplane/jobwrecker/internal/schema"
)

var validateExtensions bool

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate generated job YAML or handler extensions",
	Long:  "Validate generated job and view YAML against the document schema. Directories are scanned for .yml and .yaml files; without arguments the output directory is checked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateExtensions {
			return validateExtensionFiles(args)
		}
		return validateDocuments(args)
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateExtensions, "extensions", false, "Validate handler extension files instead of generated YAML")
}

func validateDocuments(paths []string) error {
	if len(paths) == 0 {
		paths = []string{cfg.OutputDir}
	}

	v, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	fmt.Println("□ Validating documents...")
	var files []string
	for _, path := range paths {
		found, err := yamlFiles(path)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	failed := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := v.ValidateDocument(data); err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n", file, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents are invalid", failed, len(files))
	}
	fmt.Printf("✓ %d documents are valid\n", len(files))
	return nil
}

func validateExtensionFiles(paths []string) error {
	if len(paths) == 0 {
		paths = cfg.Extensions
	}
	if len(paths) == 0 {
		return fmt.Errorf("no extension files given")
	}

	v, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	reg, err := buildRegistry(v, paths)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Extensions are valid (%d components)\n", len(reg.Components()))
	return nil
}

func yamlFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(p))
		if !d.IsDir() && (ext == ".yml" || ext == ".yaml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", path, err)
	}
	return files, nil
}
