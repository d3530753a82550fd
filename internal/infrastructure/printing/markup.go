package printing

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// imageAttr reports which attribute of a start tag carries an image reference.
// Attribute keys come lowercased from the tokenizer.
func imageAttr(tag string, attrs []html.Attribute) []string {
	switch tag {
	case "img":
		return []string{"src"}
	case "input":
		for _, a := range attrs {
			if a.Key == "type" && strings.EqualFold(strings.TrimSpace(a.Val), "image") {
				return []string{"src"}
			}
		}
	case "video":
		return []string{"poster"}
	case "image":
		return []string{"href", "xlink:href"}
	}
	return nil
}

func isImageAttr(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// EmbedAllIn inlines every image reference in markup and returns the result.
// Distinct references are embedded concurrently and all of them complete
// before it returns. Session-local references are removed from every
// attribute and text node. Markup it does not touch is copied byte for byte.
func (e *AssetEmbedder) EmbedAllIn(ctx context.Context, markup string) string {
	refs := collectImageRefs(markup)

	resolved := make(map[string]string, len(refs))
	if len(refs) > 0 {
		var mu sync.Mutex
		g := new(errgroup.Group)
		g.SetLimit(e.concurrency)
		for _, ref := range refs {
			g.Go(func() error {
				inline := e.Embed(ctx, ref)
				mu.Lock()
				resolved[ref] = inline
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	return rewriteMarkup(markup, resolved)
}

// collectImageRefs returns the distinct image references in markup, in order
func collectImageRefs(markup string) []string {
	var refs []string
	seen := make(map[string]struct{})

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return refs
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		keys := imageAttr(tok.Data, tok.Attr)
		for _, a := range tok.Attr {
			if !isImageAttr(keys, a.Key) {
				continue
			}
			if _, ok := seen[a.Val]; ok {
				continue
			}
			seen[a.Val] = struct{}{}
			refs = append(refs, a.Val)
		}
	}
}

// rewriteMarkup replaces image attributes using resolved and scrubs
// session-local references from everything else
func rewriteMarkup(markup string, resolved map[string]string) string {
	var out bytes.Buffer
	out.Grow(len(markup))

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		// Raw must be copied before Token, which lowercases names in place
		raw := append([]byte(nil), z.Raw()...)

		switch tt {
		case html.ErrorToken:
			out.Write(scrubEphemeral(raw))
			return out.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if rewriteAttrs(&tok, resolved) {
				out.WriteString(tok.String())
			} else {
				out.Write(raw)
			}

		default:
			out.Write(scrubEphemeral(raw))
		}
	}
}

// rewriteAttrs updates tok in place and reports whether anything changed
func rewriteAttrs(tok *html.Token, resolved map[string]string) bool {
	keys := imageAttr(tok.Data, tok.Attr)
	changed := false
	for i, a := range tok.Attr {
		if isImageAttr(keys, a.Key) {
			inline, ok := resolved[a.Val]
			if !ok {
				inline = TransparentPlaceholder
			}
			if inline != a.Val {
				tok.Attr[i].Val = inline
				changed = true
			}
			continue
		}
		if ephemeralPattern.MatchString(a.Val) {
			tok.Attr[i].Val = ephemeralPattern.ReplaceAllString(a.Val, TransparentPlaceholder)
			changed = true
		}
	}
	return changed
}

func scrubEphemeral(raw []byte) []byte {
	if !ephemeralPattern.Match(raw) {
		return raw
	}
	return ephemeralPattern.ReplaceAll(raw, nil)
}
