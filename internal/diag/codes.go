package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// lexical
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004
	LexUnterminatedChar         Code = 1005

	// parser
	PrsInfo             Code = 2000
	PrsUnexpectedToken  Code = 2001
	PrsUnclosedDelim    Code = 2002
	PrsExpectIdentifier Code = 2003
	PrsNestingTooDeep   Code = 2004
	PrsBadItem          Code = 2005

	// engine
	EngInfo          Code = 3000
	EngRuleFault     Code = 3001
	EngTruncated     Code = 3002
	EngUnparseable   Code = 3003
	EngUnusedIgnore  Code = 3004
	EngUnknownIgnore Code = 3005

	// io
	IOLoadFileError Code = 4001
	IOCacheError    Code = 4002

	// configuration
	CfgInvalidValue Code = 5001
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Lexical information",
	LexUnknownChar:              "Unknown character",
	LexUnterminatedString:       "Unterminated string literal",
	LexUnterminatedBlockComment: "Unterminated block comment",
	LexBadNumber:                "Malformed numeric literal",
	LexUnterminatedChar:         "Unterminated character literal",
	PrsInfo:                     "Parser information",
	PrsUnexpectedToken:          "Unexpected token",
	PrsUnclosedDelim:            "Unclosed delimiter",
	PrsExpectIdentifier:         "Expected identifier",
	PrsNestingTooDeep:           "Nesting too deep",
	PrsBadItem:                  "Malformed item",
	EngInfo:                     "Engine information",
	EngRuleFault:                "Rule evaluation fault",
	EngTruncated:                "Analysis truncated",
	EngUnparseable:              "Unit could not be parsed",
	EngUnusedIgnore:             "Unused ignore directive",
	EngUnknownIgnore:            "Ignore directive names unknown rule",
	IOLoadFileError:             "I/O error",
	IOCacheError:                "Cache error",
	CfgInvalidValue:             "Invalid configuration value",
}

// ID returns the stable identifier, e.g. "PRS2001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRS%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ENG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
