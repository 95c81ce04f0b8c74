package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoyo-67/ai-agent-mvp/workspace"
)

// Argument records for the file tools. Schemas are derived via reflection;
// omitempty marks a field optional.

type readArgs struct {
	Path string `json:"path" description:"Relative path to the file (e.g. 'sample.txt' or 'data/config.json')"`
}

type writeArgs struct {
	Path    string `json:"path" description:"Relative path to the file within the workspace"`
	Content string `json:"content" description:"Content to write to the file"`
}

type editArgs struct {
	Path    string `json:"path" description:"Relative path to the file within the workspace"`
	Search  string `json:"search" description:"The string to search for in the file"`
	Replace string `json:"replace" description:"The string to replace the first occurrence with"`
}

type listArgs struct {
	Pattern string `json:"pattern,omitempty" description:"Glob pattern to match files (e.g. '*.txt'). Defaults to '*'" default:"*"`
}

type searchArgs struct {
	Pattern     string `json:"pattern" description:"Regular expression pattern to search for"`
	FilePattern string `json:"file_pattern,omitempty" description:"Glob pattern to filter which files to search (e.g. '*.go'). Defaults to '*'" default:"*"`
}

// FileTools returns the fixed tool set operating on the given workspace:
// read, write, edit, list and search.
func FileTools(ws *workspace.Workspace) []Tool {
	return []Tool{
		NewFunctionToolFromStruct(
			"read",
			"Read the contents of a file at the specified path within the workspace",
			readArgs{},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := args["path"].(string)
				return ws.ReadFile(path)
			},
		),
		NewFunctionToolFromStruct(
			"write",
			"Write content to a file. Creates the file if it doesn't exist, overwrites if it does.",
			writeArgs{},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := args["path"].(string)
				content, _ := args["content"].(string)
				if err := ws.WriteFile(path, content); err != nil {
					return "", err
				}
				return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
			},
		),
		NewFunctionToolFromStruct(
			"edit",
			"Edit a file by replacing the first occurrence of a search string with a replacement string",
			editArgs{},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := args["path"].(string)
				search, _ := args["search"].(string)
				replace, _ := args["replace"].(string)
				if err := ws.EditFile(path, search, replace); err != nil {
					return "", err
				}
				return fmt.Sprintf("Replaced first occurrence in %s", path), nil
			},
		),
		NewFunctionToolFromStruct(
			"list",
			"List files in the workspace matching a glob pattern",
			listArgs{},
			func(ctx context.Context, args map[string]any) (string, error) {
				pattern, _ := args["pattern"].(string)
				if pattern == "" {
					pattern = "*"
				}
				files, err := ws.ListFiles(pattern)
				if err != nil {
					return "", err
				}
				if len(files) == 0 {
					return "No files found matching pattern", nil
				}
				return strings.Join(files, "\n"), nil
			},
		),
		NewFunctionToolFromStruct(
			"search",
			"Search for a regex pattern in files within the workspace (grep-like)",
			searchArgs{},
			func(ctx context.Context, args map[string]any) (string, error) {
				pattern, _ := args["pattern"].(string)
				filePattern, _ := args["file_pattern"].(string)
				if filePattern == "" {
					filePattern = "*"
				}
				matches, err := ws.SearchFiles(pattern, filePattern)
				if err != nil {
					return "", err
				}
				if len(matches) == 0 {
					return "No matches found", nil
				}
				return strings.Join(matches, "\n"), nil
			},
		),
	}
}
