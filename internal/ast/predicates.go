package ast

import (
	"regexp"
	"strconv"
	"strings"
)

// frameworkNamespace is the embedded task-graph API's namespace, exactly as
// named in spec.md's GLOSSARY and examples ("tapa::stream", "tapa::task",
// ...).
const frameworkNamespace = "tapa"

// Category is the closed set of port/type categories the framework defines
// (spec.md §3 "Port"). It doubles as the parametric-type kind for
// IsFrameworkType's regex matching.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryIStream
	CategoryOStream
	CategoryIStreams
	CategoryOStreams
	CategoryMmap
	CategoryAsyncMmap
	CategoryMmaps
	CategoryHmap
	CategoryScalar
	CategorySeq
	CategoryTaskGraph
)

func (c Category) String() string {
	switch c {
	case CategoryIStream:
		return "istream"
	case CategoryOStream:
		return "ostream"
	case CategoryIStreams:
		return "istreams"
	case CategoryOStreams:
		return "ostreams"
	case CategoryMmap:
		return "mmap"
	case CategoryAsyncMmap:
		return "async_mmap"
	case CategoryMmaps:
		return "mmaps"
	case CategoryHmap:
		return "hmap"
	case CategoryScalar:
		return "scalar"
	case CategorySeq:
		return "seq"
	case CategoryTaskGraph:
		return "task"
	default:
		return "unknown"
	}
}

// categoryPattern is the closed mapping from a grammar-level framework
// record name to its Category, mirroring the original's per-type regex
// checks (is_mmap, is_stream, ...).
var categoryPattern = map[string]Category{
	"istream":    CategoryIStream,
	"ostream":    CategoryOStream,
	"istreams":   CategoryIStreams,
	"ostreams":   CategoryOStreams,
	"stream":     CategoryUnknown, // direction-agnostic; no direction is resolved for it
	"streams":    CategoryUnknown,
	"mmap":       CategoryMmap,
	"async_mmap": CategoryAsyncMmap,
	"mmaps":      CategoryMmaps,
	"hmap":       CategoryHmap,
	"seq":        CategorySeq,
	"task":       CategoryTaskGraph,
}

// templateName extracts "name" from "tapa::name<...>" or "name<...>" or
// bare "name", the way a qualified-name lookup over a typed AST would, but
// implemented textually since this front end does not carry a symbol
// table (spec.md §9 DESIGN NOTES: a hard dependency on a comparable AST
// library, worked around here by restricting what is accepted).
func templateName(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "const ")
	text = strings.TrimPrefix(text, "typename ")
	if idx := strings.Index(text, frameworkNamespace+"::"); idx >= 0 {
		text = text[idx+len(frameworkNamespace)+2:]
	}
	if idx := strings.IndexAny(text, "<& *"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// IsFrameworkType reports whether node's type text names a record matching
// pattern, with or without the tapa:: qualifier, e.g. IsFrameworkType(n, "mmap") or
// IsFrameworkType(n, "i?stream").
func IsFrameworkType(node Node, pattern string) bool {
	name := templateName(node.Text())
	if name == "" {
		return false
	}
	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return name == pattern
	}
	return re.MatchString(name)
}

// CategoryOf classifies a type node into the closed Category set. A bare
// "stream"/"streams" node (direction-agnostic in the type alone) yields
// CategoryUnknown; this package does not resolve its direction.
func CategoryOf(typeNode Node) Category {
	name := templateName(typeNode.Text())
	if cat, ok := categoryPattern[name]; ok {
		return cat
	}
	return CategoryUnknown
}

// templateArgs extracts the comma-separated arguments between the first
// '<' and its matching '>' in a type's text.
func templateArgs(text string) []string {
	start := strings.Index(text, "<")
	if start < 0 {
		return nil
	}
	depth := 0
	end := -1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil
	}
	inner := text[start+1 : end]
	var args []string
	depth = 0
	last := 0
	for i, r := range inner {
		switch r {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[last:i]))
				last = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[last:]))
	return args
}

// ElementType returns the first template argument of a parametric
// framework type (the T in stream<T,D>, mmap<T>, mmaps<T,N>, hmap<T,N,S>).
func ElementType(typeNode Node) string {
	args := templateArgs(typeNode.Text())
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// IntegralArg evaluates the k-th template argument (0-based) as a constant
// integer, for depths, array lengths, and channel counts. A non-constant-
// evaluable argument is reported via ok=false, which callers surface as
// the graph error named in spec.md §7 ("non-constant-evaluable template
// argument").
func IntegralArg(typeNode Node, k int) (value int64, ok bool) {
	args := templateArgs(typeNode.Text())
	if k < 0 || k >= len(args) {
		return 0, false
	}
	return evalConstInt(args[k])
}

// ArraySize is IntegralArg(1) for mmaps<T,N>/streams<T,N,D>-style types,
// named separately because it is the most frequently consulted arg.
func ArraySize(typeNode Node) (int64, bool) {
	return IntegralArg(typeNode, 1)
}

// evalConstInt folds a narrow grammar of constant integer expressions:
// decimal/hex literals, optionally parenthesized, optionally negated.
// Anything wider (a named constexpr, a function call) is not
// constant-evaluable by this front end.
func evalConstInt(expr string) (int64, bool) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimSuffix(expr, "u")
	expr = strings.TrimSuffix(expr, "U")
	expr = strings.TrimSuffix(expr, "l")
	expr = strings.TrimSuffix(expr, "L")
	neg := false
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	if strings.HasPrefix(expr, "-") {
		neg = true
		expr = strings.TrimSpace(expr[1:])
	}
	base := 10
	if strings.HasPrefix(expr, "0x") || strings.HasPrefix(expr, "0X") {
		base = 16
		expr = expr[2:]
	}
	v, err := strconv.ParseInt(expr, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// IsPrimitiveScalar reports whether typeText names a primitive C/C++
// scalar type, used to classify `scalar` category ports (spec.md §3).
func IsPrimitiveScalar(typeText string) bool {
	t := strings.TrimSpace(typeText)
	t = strings.TrimPrefix(t, "const ")
	switch t {
	case "bool", "char", "signed char", "unsigned char",
		"short", "unsigned short", "int", "unsigned int", "unsigned",
		"long", "unsigned long", "long long", "unsigned long long",
		"float", "double",
		"int8_t", "uint8_t", "int16_t", "uint16_t",
		"int32_t", "uint32_t", "int64_t", "uint64_t", "size_t":
		return true
	default:
		return false
	}
}

// BitWidth returns the bit width of a primitive scalar or tapa ap_(u)int<W>
// type, used for the Port.Width field (spec.md §3 / §6.3).
func BitWidth(typeText string) int {
	t := strings.TrimSpace(typeText)
	t = strings.TrimPrefix(t, "const ")
	switch t {
	case "bool":
		return 1
	case "char", "signed char", "unsigned char", "int8_t", "uint8_t":
		return 8
	case "short", "unsigned short", "int16_t", "uint16_t":
		return 16
	case "int", "unsigned int", "unsigned", "int32_t", "uint32_t", "float":
		return 32
	case "long", "unsigned long", "long long", "unsigned long long",
		"int64_t", "uint64_t", "size_t", "double":
		return 64
	}
	if strings.HasPrefix(t, "ap_int<") || strings.HasPrefix(t, "ap_uint<") {
		start := strings.Index(t, "<")
		end := strings.Index(t, ">")
		if start >= 0 && end > start {
			if v, ok := evalConstInt(t[start+1 : end]); ok {
				return int(v)
			}
		}
	}
	return 32 // conservative default for an unrecognized scalar type
}
