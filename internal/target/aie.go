package target

import (
	"fmt"
	"strings"

	"tapac/internal/ast"
	"tapac/internal/graph"
)

// adfHeaderMarker is the adf header include line. It is not referenced
// anywhere: no rewriting step emits the adf header.
const adfHeaderMarker = `#include <adf.h>`

// AIETarget is the Vendor-AIE backend of spec.md §4.6: stream parameters
// become input_stream<uint_W>*/output_stream<uint_W>*, mmap parameters
// become input_window<uint_W>*, the framework's target attribute is
// removed, and non-current sibling tasks are deleted outright. The adf
// header is not injected into the emitted source. Pragma and type text matches
// original_source/tapacc/target/xilinx_aie_target.cpp.
type AIETarget struct{}

func (t *AIETarget) Name() string { return "xilinx-aie" }

func (t *AIETarget) RewriteArg(lvl PortLevel, p graph.Port) []string {
	switch p.Cat {
	case ast.CategoryIStream, ast.CategoryIStreams:
		return []string{fmt.Sprintf("input_stream<uint%d>* %s", p.Width, p.Name)}
	case ast.CategoryOStream, ast.CategoryOStreams:
		return []string{fmt.Sprintf("output_stream<uint%d>* %s", p.Width, p.Name)}
	case ast.CategoryMmap, ast.CategoryMmaps, ast.CategoryAsyncMmap, ast.CategoryHmap:
		return []string{fmt.Sprintf("input_window<uint%d>* %s", p.Width, p.Name)}
	default:
		return []string{fmt.Sprintf("%s %s", p.Type, p.Name)}
	}
}

func (t *AIETarget) CategoryHook(lvl PortLevel, p graph.Port) []string {
	switch p.Cat {
	case ast.CategoryIStream, ast.CategoryIStreams:
		return []string{fmt.Sprintf("auto %s_probe = readincr(%s);", p.Name, p.Name)}
	case ast.CategoryOStream, ast.CategoryOStreams:
		return []string{fmt.Sprintf("writeincr(%s, {});", p.Name)}
	case ast.CategoryMmap, ast.CategoryMmaps, ast.CategoryAsyncMmap, ast.CategoryHmap:
		return []string{fmt.Sprintf("volatile auto %s_probe = window_readincr(%s);", p.Name, p.Name)}
	default:
		return nil
	}
}

func (t *AIETarget) RewriteBody(lvl PortLevel, original string, portLines []string) string {
	body := stripTargetAttribute(original)
	if len(portLines) == 0 {
		return body
	}
	inject := strings.Join(portLines, "\n  ")
	return insertAfterOpenBrace(body, inject)
}

func (t *AIETarget) PipelineHook(loop ast.Node) string {
	return "" // the AIE compiler infers pipelining; no explicit pragma is emitted
}

func (t *AIETarget) UnrollHook(loop ast.Node) string {
	return "#pragma unroll"
}

// StripSibling deletes the sibling's declaration entirely (spec.md §4.6:
// "Non-current sibling tasks are deleted outright from the emitted
// source.").
func (t *AIETarget) StripSibling(sibling *graph.Task, originalSource string) (string, bool) {
	return "", true
}

func stripTargetAttribute(body string) string {
	const marker = `[[tapa::target`
	for {
		start := strings.Index(body, marker)
		if start < 0 {
			return body
		}
		end := strings.Index(body[start:], "]]")
		if end < 0 {
			return body
		}
		body = body[:start] + body[start+end+2:]
	}
}
