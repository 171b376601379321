package iseq

import "fmt"

// Opcode identifies an instruction. The set is closed.
type Opcode int

const (
	OpNop Opcode = iota
	OpBodyStart
	OpPutNil
	OpPutSelf
	OpPutObject
	OpPutString
	OpPutSpecialObject
	OpDupArray
	OpDupHash
	OpNewArray
	OpNewHash
	OpNewRange
	OpConcatStrings
	OpToString
	OpFreezeString
	OpToRegexp
	OpIntern
	OpSplatArray
	OpExpandArray
	OpConcatArray
	OpCheckType
	OpDefined
	OpCheckMatch
	OpCheckKeyword
	OpGetLocal
	OpSetLocal
	OpGetBlockParam
	OpSetBlockParam
	OpGetBlockParamProxy
	OpGetInstanceVariable
	OpSetInstanceVariable
	OpGetClassVariable
	OpSetClassVariable
	OpGetGlobal
	OpSetGlobal
	OpGetConstant
	OpSetConstant
	OpGetSpecial
	OpDefineMethod
	OpDefineSMethod
	OpDefineClass
	OpSend
	OpSendBranch
	OpInvokeBlock
	OpInvokeSuper
	OpLeave
	OpThrow
	OpOnce
	OpBranch
	OpJump
	OpGetLocalBranch
	OpDupBranch
	OpGetLocalDupBranch
	OpGetLocalCheckMatchBranch
	OpDup
	OpDupN
	OpPop
	OpSwap
	OpReverse
	OpTopN
	OpSetN
	OpAdjustStack

	opEnd
)

var opNames = [...]string{
	OpNop:                      "nop",
	OpBodyStart:                "body_start",
	OpPutNil:                   "putnil",
	OpPutSelf:                  "putself",
	OpPutObject:                "putobject",
	OpPutString:                "putstring",
	OpPutSpecialObject:         "putspecialobject",
	OpDupArray:                 "duparray",
	OpDupHash:                  "duphash",
	OpNewArray:                 "newarray",
	OpNewHash:                  "newhash",
	OpNewRange:                 "newrange",
	OpConcatStrings:            "concatstrings",
	OpToString:                 "tostring",
	OpFreezeString:             "freezestring",
	OpToRegexp:                 "toregexp",
	OpIntern:                   "intern",
	OpSplatArray:               "splatarray",
	OpExpandArray:              "expandarray",
	OpConcatArray:              "concatarray",
	OpCheckType:                "checktype",
	OpDefined:                  "defined",
	OpCheckMatch:               "checkmatch",
	OpCheckKeyword:             "checkkeyword",
	OpGetLocal:                 "getlocal",
	OpSetLocal:                 "setlocal",
	OpGetBlockParam:            "getblockparam",
	OpSetBlockParam:            "setblockparam",
	OpGetBlockParamProxy:       "getblockparamproxy",
	OpGetInstanceVariable:      "getinstancevariable",
	OpSetInstanceVariable:      "setinstancevariable",
	OpGetClassVariable:         "getclassvariable",
	OpSetClassVariable:         "setclassvariable",
	OpGetGlobal:                "getglobal",
	OpSetGlobal:                "setglobal",
	OpGetConstant:              "getconstant",
	OpSetConstant:              "setconstant",
	OpGetSpecial:               "getspecial",
	OpDefineMethod:             "definemethod",
	OpDefineSMethod:            "definesmethod",
	OpDefineClass:              "defineclass",
	OpSend:                     "send",
	OpSendBranch:               "send_branch",
	OpInvokeBlock:              "invokeblock",
	OpInvokeSuper:              "invokesuper",
	OpLeave:                    "leave",
	OpThrow:                    "throw",
	OpOnce:                     "once",
	OpBranch:                   "branch",
	OpJump:                     "jump",
	OpGetLocalBranch:           "getlocal_branch",
	OpDupBranch:                "dup_branch",
	OpGetLocalDupBranch:        "getlocal_dup_branch",
	OpGetLocalCheckMatchBranch: "getlocal_checkmatch_branch",
	OpDup:                      "dup",
	OpDupN:                     "dupn",
	OpPop:                      "pop",
	OpSwap:                     "swap",
	OpReverse:                  "reverse",
	OpTopN:                     "topn",
	OpSetN:                     "setn",
	OpAdjustStack:              "adjuststack",
}

func (op Opcode) String() string {
	if op >= 0 && op < opEnd {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// ParseOpcode looks up an opcode by its mnemonic.
func ParseOpcode(s string) (Opcode, bool) {
	for i, name := range opNames {
		if name == s {
			return Opcode(i), true
		}
	}
	return 0, false
}

// CallFlag describes how the actual arguments of a call are laid out on the stack.
type CallFlag int

const (
	FlagArgsSplat CallFlag = 1 << iota
	FlagArgsBlockArg
	FlagFCall
	FlagVCall
	FlagKwArg
	FlagKwSplat
)

// CallInfo is the operand of send, invokeblock and invokesuper.
type CallInfo struct {
	Mid    string
	Argc   int
	Flags  CallFlag
	KwArgs []string  // keyword names, the last len(KwArgs) stack values
	Block  *CodeBody // literal block, nil if absent
}

// Has reports whether all of the given flags are set.
func (ci *CallInfo) Has(f CallFlag) bool {
	return ci.Flags&f == f
}

// BranchKind selects the jump condition.
type BranchKind int

const (
	BranchIf BranchKind = iota
	BranchUnless
	BranchNil
)

func (k BranchKind) String() string {
	switch k {
	case BranchIf:
		return "if"
	case BranchUnless:
		return "unless"
	case BranchNil:
		return "nil"
	}
	return fmt.Sprintf("BranchKind(%d)", int(k))
}

// LocalRef addresses a local slot, Level frames outward.
type LocalRef struct {
	Idx   int
	Level int
}

// Special object selectors for putspecialobject.
const (
	SpecialVMCore    = 1
	SpecialCBase     = 2
	SpecialConstBase = 3
)

// Class definition flags for defineclass.
const (
	DefineClass          = 0
	DefineSingletonClass = 1
	DefineModule         = 2
	DefineHasSuperclass  = 0x10
)

// Throw types.
const (
	ThrowReturn = 1
	ThrowBreak  = 2
	ThrowNext   = 3
	ThrowRetry  = 4
	ThrowRedo   = 5
)

// Insn is a single instruction. Only the operand fields relevant to Op are set.
type Insn struct {
	Op   Opcode
	Line int

	N    int    // count, index, flag or special selector
	M    int    // secondary count or flag
	ID   string // method, variable or constant name
	Lit  *Literal
	Body *CodeBody
	Call *CallInfo

	Local  LocalRef
	Branch BranchKind
	Target int
}

func (in Insn) String() string {
	switch {
	case in.Call != nil:
		return fmt.Sprintf("%s %s/%d", in.Op, in.Call.Mid, in.Call.Argc)
	case in.Lit != nil:
		return fmt.Sprintf("%s %s", in.Op, in.Lit)
	case in.ID != "":
		return fmt.Sprintf("%s %s", in.Op, in.ID)
	}
	return in.Op.String()
}
