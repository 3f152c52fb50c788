package cueschema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/sqlplan/internal/schema"
)

// Compile reads every entity under the top-level "entity" field of v and
// returns them as a closed catalog. All entity errors are collected before
// returning.
func Compile(v cue.Value) (*schema.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{Field: "entity", Message: "no entities found", Pos: v.Pos()}
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var (
		entities []*schema.Entity
		errs     []error
	)
	for iter.Next() {
		e, err := CompileEntity(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("entity.%s: %w", iter.Label(), err))
			continue
		}
		entities = append(entities, e)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	fillJoinTables(entities)
	return schema.NewCatalog(entities...)
}

// fillJoinTables defaults each join's table to its target entity's table.
// Unknown targets are left for NewCatalog to report.
func fillJoinTables(entities []*schema.Entity) {
	byName := make(map[string]*schema.Entity, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
	}
	for _, e := range entities {
		for i, j := range e.Joins {
			if j.Table != "" {
				continue
			}
			if target, ok := byName[j.Target]; ok {
				e.Joins[i].Table = target.Table
			}
		}
	}
}

// CompileString compiles CUE source text. filename is used in positions.
func CompileString(src, filename string) (*schema.Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// LoadDir loads the CUE package in dir and compiles its entities.
func LoadDir(dir string) (*schema.Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(value)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
