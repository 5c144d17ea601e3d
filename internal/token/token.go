// Package token defines the token kinds and value payloads produced by the
// lexer and consumed by the preprocessor and parser (§3, §4.2).
package token

import (
	"fmt"

	"github.com/hkoba/go-macrogen/internal/intern"
)

// Kind is a tagged token category. The punctuator and keyword sets are
// intentionally flat iota values rather than interned strings: the parser
// switches on these thousands of times per header and comparing small
// integers keeps that hot path cheap.
type Kind int

const (
	EOF Kind = iota

	Identifier
	IntLiteral
	FloatLiteral
	CharLiteral
	StringLiteral

	// Keywords
	KwAuto
	KwBreak
	KwCase
	KwChar
	KwConst
	KwContinue
	KwDefault
	KwDo
	KwDouble
	KwElse
	KwEnum
	KwExtern
	KwFloat
	KwFor
	KwGoto
	KwIf
	KwInline
	KwInt
	KwLong
	KwRegister
	KwRestrict
	KwReturn
	KwShort
	KwSigned
	KwSizeof
	KwStatic
	KwStruct
	KwSwitch
	KwTypedef
	KwUnion
	KwUnsigned
	KwVoid
	KwVolatile
	KwWhile
	KwAlignof
	KwAtomic
	KwNoreturn
	KwTypeof
	KwAsm
	KwAttribute
	KwExtension

	// Punctuators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Comma
	Colon
	QuestionMark
	Ellipsis

	Dot
	Arrow

	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Bang
	Shl
	Shr

	AmpAmp
	PipePipe

	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	AmpAssign
	PipeAssign
	CaretAssign
	ShlAssign
	ShrAssign

	PlusPlus
	MinusMinus

	Hash
	HashHash

	// Internal markers synthesized by the preprocessor around certain macro
	// expansions (§3 "Internal markers", §4.4). Never produced by the
	// lexer directly.
	MacroBeginMark
	MacroEndMark
)

// LiteralWidth classifies the storage class of a decoded numeric or
// character/string literal, independent of its surface spelling.
type LiteralWidth int

const (
	WidthNone LiteralWidth = iota
	WidthInt
	WidthUnsignedInt
	WidthLong
	WidthUnsignedLong
	WidthLongLong
	WidthUnsignedLongLong
	WidthFloat
	WidthDouble
	WidthLongDouble
	WidthChar
	WidthWChar
	WidthChar16
	WidthChar32
)

// Literal carries the decoded payload of a numeric, character, or string
// token: an integer/float value plus a width/suffix classification for
// numbers, or a decoded byte/wide payload for char and string literals.
type Literal struct {
	Width LiteralWidth

	Int   int64   // decoded integer value, for IntLiteral / CharLiteral
	Float float64 // decoded floating value, for FloatLiteral

	// Decoded holds the canonical bytes of a string literal after escape
	// processing, or the single decoded rune for a char literal. Produced
	// at lex time per §4.2 ("strings and character literals must be
	// decoded ... at lex time").
	Decoded string
}

// ParamRef, when non-zero, marks a Token inside a macro body as a reference
// to the Nth (0-based) macro parameter rather than an ordinary identifier.
// Populated by the preprocessor while recording a macro body (§3).
type ParamRef struct {
	IsParam bool
	Index   int
}

// MacroMarker carries the payload of a MacroBeginMark token (§3).
type MacroMarker struct {
	Name         intern.ID
	ArgTokens    [][]Token // one unexpanded token slice per actual argument
	PreserveCall bool
}

// Token is a value-like element of a token stream: a kind, an optional
// payload, and a source location. Tokens are copied by value throughout the
// core; none of them own a mutable backing buffer.
type Token struct {
	Kind Kind
	Pos  intern.Pos

	Name    intern.ID // valid when Kind == Identifier
	Lit     Literal   // valid when Kind is a literal kind
	Param   ParamRef  // valid inside a macro body being substituted
	Marker  *MacroMarker
	Text    string // original spelling, retained for `#` stringizing (§4.2)
	Spacing bool   // true if at least one space/tab preceded this token
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier:
		return fmt.Sprintf("Identifier(%s)", t.Text)
	case IntLiteral, FloatLiteral:
		return fmt.Sprintf("Number(%s)", t.Text)
	case StringLiteral:
		return fmt.Sprintf("String(%q)", t.Lit.Decoded)
	case CharLiteral:
		return fmt.Sprintf("Char(%q)", t.Lit.Decoded)
	case EOF:
		return "EOF"
	case MacroBeginMark:
		return "MacroBegin"
	case MacroEndMark:
		return "MacroEnd"
	default:
		if t.Text != "" {
			return t.Text
		}
		return fmt.Sprintf("Kind(%d)", t.Kind)
	}
}

// Keywords maps the fixed C keyword spellings (plus the GCC-extension
// spellings accepted per §4.4) to their Kind.
var Keywords = map[string]Kind{
	"auto":     KwAuto,
	"break":    KwBreak,
	"case":     KwCase,
	"char":     KwChar,
	"const":    KwConst,
	"continue": KwContinue,
	"default":  KwDefault,
	"do":       KwDo,
	"double":   KwDouble,
	"else":     KwElse,
	"enum":     KwEnum,
	"extern":   KwExtern,
	"float":    KwFloat,
	"for":      KwFor,
	"goto":     KwGoto,
	"if":       KwIf,
	"inline":       KwInline,
	"__inline__":   KwInline,
	"__inline":     KwInline,
	"int":          KwInt,
	"long":         KwLong,
	"register":     KwRegister,
	"restrict":     KwRestrict,
	"__restrict__":  KwRestrict,
	"__restrict":    KwRestrict,
	"return":        KwReturn,
	"short":         KwShort,
	"signed":        KwSigned,
	"sizeof":        KwSizeof,
	"static":        KwStatic,
	"struct":        KwStruct,
	"switch":        KwSwitch,
	"typedef":       KwTypedef,
	"union":         KwUnion,
	"unsigned":      KwUnsigned,
	"void":          KwVoid,
	"volatile":      KwVolatile,
	"while":         KwWhile,
	"_Alignof":      KwAlignof,
	"__alignof__":   KwAlignof,
	"_Atomic":       KwAtomic,
	"_Noreturn":     KwNoreturn,
	"typeof":        KwTypeof,
	"__typeof__":    KwTypeof,
	"__typeof":      KwTypeof,
	"asm":           KwAsm,
	"__asm__":       KwAsm,
	"__attribute__": KwAttribute,
	"__attribute":   KwAttribute,
	"__extension__": KwExtension,
}
