package driver

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed manifest.cue
var manifestSchemaSource string

// validateManifestSchema unifies the decoded YAML document with the closed
// manifest schema, so unknown keys and mistyped values are reported with the
// field path that failed.
func validateManifestSchema(path string, doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString("close({"+manifestSchemaSource+"})", cue.Filename("manifest.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest: compile schema: %w", err)
	}
	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("manifest: encode %s: %w", path, err)
	}
	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Issues: schemaIssues(err)}
	}
	return nil
}

func schemaIssues(err error) []string {
	var issues []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			msg = strings.Join(path, ".") + ": " + msg
		}
		issues = append(issues, msg)
	}
	if len(issues) == 0 {
		issues = append(issues, err.Error())
	}
	return issues
}
