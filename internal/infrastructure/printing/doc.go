// Package printing turns letter requests into self-contained, printable HTML
// documents and previews them on a script-disabled surface.
//
// This package contains:
// - Substitute / Substitutor for {{field}} placeholder replacement
// - TemplateEngine and LayoutStore for the embedded per-type HTML layouts
// - AssetEmbedder which inlines every image reference as a data: URI
// - Assembler which composes letterhead, body, signatures and footer
// - Renderer, the preview/print state machine, with SandboxSurface and
//   ChromedpSurface implementations
// - ArtifactChecker implementations and FileSystemStorage for print captures
//
// Example usage:
//
//	embedder := NewAssetEmbedder(&AssetEmbedderConfig{FetchTimeout: 5 * time.Second})
//	assembler := NewAssembler(engine, store, layouts.NewDefaultRegistry(engine, store), embedder,
//	    &AssemblerConfig{Letterhead: head, Peeker: allocator})
//	doc, err := assembler.Assemble(ctx, tmpl, fields, &AssembleOptions{Number: num, Final: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := NewRenderer(NewSandboxSurface(), &RendererConfig{Checker: spool})
//	snap := r.Load(ctx, RenderInput{Document: doc, Printable: true})
package printing
