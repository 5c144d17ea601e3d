// Package driver ties the six core components into the single
// per-invocation entry point external callers use (§2 "entry point"): build
// the interner and registry, preprocess and parse every entry file in
// order, let the dictionaries populate as parsing goes, then run the
// inference driver and hand back its result (§6 "Inference result").
package driver

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hkoba/go-macrogen/internal/config"
	"github.com/hkoba/go-macrogen/internal/cpp"
	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/dict"
	"github.com/hkoba/go-macrogen/internal/infer"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/parser"
)

// Result is what one invocation produces: the inference result plus every
// accumulated non-fatal diagnostic (§7 "all non-fatal errors accumulate").
type Result struct {
	Inference infer.InferenceResult
	Warnings  []*diag.Error
}

// Run executes one full invocation over cfg.EntryFiles (§6 "entry file
// set"). funcs and apidoc are the external collaborators named in §1's
// out-of-scope list (function-signature and apidoc lookup); either may be
// nil. logger may be nil, in which case a no-op logger is used.
//
// Run returns a single *diag.Error only when a lexical or preprocessor
// error aborts the current translation unit (§7 "fatal for the current
// translation unit"); every other problem — parse recovery, incomplete
// macro types, unavailable callees — is non-fatal and surfaces through
// Result.Warnings or through the per-macro Status in the inference result
// itself.
func Run(cfg config.Config, funcs *config.ExternalFuncTable, apidoc *config.ApidocTable, logger *zap.Logger) (Result, *diag.Error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if funcs == nil {
		funcs = config.NewExternalFuncTable()
	}

	in := intern.New()
	reg := intern.NewRegistry()

	pp := cpp.New(in, reg, cpp.OSSource{}, cpp.Options{
		QuoteIncludeDirs:    cfg.QuoteIncludeDirs,
		SystemIncludeDirs:   cfg.SystemIncludeDirs,
		Defines:             convertDefines(cfg.Defines),
		SkipExpandNames:     funcs.ConstantNames(),
		WrappedNames:        orDefault(cfg.WrappedMacroNames, config.DefaultWrappedMacroNames),
		ExplicitExpandNames: orDefault(cfg.ExplicitExpandNames, config.DefaultExplicitExpandNames),
		StrictRedefinition:  cfg.StrictParse,
	})

	fieldDict := dict.NewFieldDict()
	inlineDict := dict.NewInlineFuncDict()
	enumDict := dict.NewEnumVariantDict()
	applyFieldTypeOverrides(in, fieldDict, cfg.FieldTypeOverrides)

	isTarget := func(pos intern.Pos) bool {
		if cfg.TargetDirectory == "" {
			return true
		}
		return strings.HasPrefix(reg.Path(pos.File), cfg.TargetDirectory)
	}
	onDecl := dict.NewCollector(fieldDict, inlineDict, enumDict, isTarget)

	warnings := diag.NewBag()
	for _, entry := range cfg.EntryFiles {
		abs, err := filepath.Abs(entry)
		if err != nil {
			return Result{Warnings: warnings.Errors()}, diag.New(intern.Pos{}, diag.Preprocessor, "cannot resolve entry file %q: %v", entry, err)
		}
		logger.Debug("preprocessing entry file", zap.String("file", abs))

		toks, ferr := pp.Run(abs)
		if ferr != nil {
			logger.Warn("fatal preprocessor error", zap.String("file", abs), zap.Error(ferr))
			return Result{Warnings: warnings.Errors()}, ferr
		}

		bag := diag.NewBag()
		p := parser.New(parser.NewSliceSource(in, toks), bag, parser.Options{
			Strict:           cfg.StrictParse,
			IsAssertionMacro: pp.IsAssertionMacro,
			OnExternalDecl:   onDecl,
		})
		p.ParseTranslationUnit()
		warnings.AddAll(bag.Errors())

		logger.Debug("parsed entry file", zap.String("file", abs), zap.Int("diagnostics", bag.Len()))
	}
	warnings.AddAll(pp.Bag.Errors())

	// infer.Driver.Run rebuilds the consistent-type cache itself once the
	// fixed-point pass starts; the overrides seeded above persist across that
	// rebuild since they live in fieldDict.Overrides, not in a snapshot.
	d := infer.NewDriver(in, reg, pp, fieldDict, inlineDict, enumDict, funcs, apidoc, cfg)
	result := d.Run()

	logger.Info("inference complete",
		zap.Int("macros", len(result.Macros)),
		zap.Int("inlines", len(result.Inlines)),
		zap.Int("warnings", warnings.Len()),
	)

	return Result{Inference: result, Warnings: warnings.Errors()}, nil
}

func convertDefines(defines []config.Define) []cpp.Define {
	out := make([]cpp.Define, len(defines))
	for i, d := range defines {
		out[i] = cpp.Define{Name: d.Name, Body: d.Body}
	}
	return out
}

func orDefault(names []string, fallback []string) []string {
	if len(names) == 0 {
		return fallback
	}
	return names
}

// applyFieldTypeOverrides seeds the consistent-type cache with the
// configured (field, struct, type) triples before BuildConsistentTypeCache
// runs, so an override always wins a tie rather than competing with it
// (§6 "field-type-overrides"; SUPPLEMENTED FEATURES "application order").
func applyFieldTypeOverrides(in *intern.Interner, fd *dict.FieldDict, overrides []config.FieldTypeOverride) {
	for _, o := range overrides {
		key := [2]intern.ID{in.Intern(o.StructName), in.Intern(o.FieldName)}
		fd.Overrides[key] = infer.ParseTypeString(in, o.Type)
	}
}
