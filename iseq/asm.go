package iseq

// Constructors for assembling code bodies by hand.

// Append adds instructions to the body and returns it.
func (b *CodeBody) Append(insns ...Insn) *CodeBody {
	b.Insns = append(b.Insns, insns...)
	return b
}

// At returns a copy of the instruction tagged with a source line.
func (in Insn) At(line int) Insn {
	in.Line = line
	return in
}

// CallOption configures a CallInfo.
type CallOption func(*CallInfo)

// WithBlock attaches a literal block.
func WithBlock(body *CodeBody) CallOption {
	return func(ci *CallInfo) { ci.Block = body }
}

// WithFlags sets call flags.
func WithFlags(f CallFlag) CallOption {
	return func(ci *CallInfo) { ci.Flags |= f }
}

// WithKwArgs declares the trailing arguments as keywords.
func WithKwArgs(names ...string) CallOption {
	return func(ci *CallInfo) {
		ci.KwArgs = names
		ci.Flags |= FlagKwArg
	}
}

// Call builds call information for mid with argc stack arguments.
func Call(mid string, argc int, options ...CallOption) *CallInfo {
	ci := &CallInfo{Mid: mid, Argc: argc}
	for _, opt := range options {
		opt(ci)
	}
	return ci
}

func Nop() Insn                   { return Insn{Op: OpNop} }
func BodyStart() Insn             { return Insn{Op: OpBodyStart} }
func PutNil() Insn                { return Insn{Op: OpPutNil} }
func PutSelf() Insn               { return Insn{Op: OpPutSelf} }
func PutObject(l *Literal) Insn   { return Insn{Op: OpPutObject, Lit: l} }
func PutString(s string) Insn     { return Insn{Op: OpPutString, Lit: Str(s)} }
func PutSpecialObject(n int) Insn { return Insn{Op: OpPutSpecialObject, N: n} }
func DupArray(l *Literal) Insn    { return Insn{Op: OpDupArray, Lit: l} }
func DupHash(l *Literal) Insn     { return Insn{Op: OpDupHash, Lit: l} }
func NewArray(n int) Insn         { return Insn{Op: OpNewArray, N: n} }
func NewHash(n int) Insn          { return Insn{Op: OpNewHash, N: n} }
func NewRange(flag int) Insn      { return Insn{Op: OpNewRange, N: flag} }
func ConcatStrings(n int) Insn    { return Insn{Op: OpConcatStrings, N: n} }
func ToString() Insn              { return Insn{Op: OpToString} }
func FreezeString() Insn          { return Insn{Op: OpFreezeString} }
func ToRegexp(opt, n int) Insn    { return Insn{Op: OpToRegexp, N: opt, M: n} }
func Intern() Insn                { return Insn{Op: OpIntern} }
func SplatArray(flag int) Insn    { return Insn{Op: OpSplatArray, N: flag} }
func ExpandArray(n, flag int) Insn {
	return Insn{Op: OpExpandArray, N: n, M: flag}
}
func ConcatArray() Insn                  { return Insn{Op: OpConcatArray} }
func CheckType(t int) Insn               { return Insn{Op: OpCheckType, N: t} }
func Defined(kind int, id string) Insn   { return Insn{Op: OpDefined, N: kind, ID: id} }
func CheckMatch(flag int) Insn           { return Insn{Op: OpCheckMatch, N: flag} }
func CheckKeyword(bits, idx int) Insn    { return Insn{Op: OpCheckKeyword, N: bits, M: idx} }
func GetLocal(idx, level int) Insn       { return Insn{Op: OpGetLocal, Local: LocalRef{idx, level}} }
func SetLocal(idx, level int) Insn       { return Insn{Op: OpSetLocal, Local: LocalRef{idx, level}} }
func GetBlockParam(idx, level int) Insn  { return Insn{Op: OpGetBlockParam, Local: LocalRef{idx, level}} }
func SetBlockParam(idx, level int) Insn  { return Insn{Op: OpSetBlockParam, Local: LocalRef{idx, level}} }
func GetBlockParamProxy(idx, level int) Insn {
	return Insn{Op: OpGetBlockParamProxy, Local: LocalRef{idx, level}}
}
func GetIvar(name string) Insn     { return Insn{Op: OpGetInstanceVariable, ID: name} }
func SetIvar(name string) Insn     { return Insn{Op: OpSetInstanceVariable, ID: name} }
func GetCvar(name string) Insn     { return Insn{Op: OpGetClassVariable, ID: name} }
func SetCvar(name string) Insn     { return Insn{Op: OpSetClassVariable, ID: name} }
func GetGlobal(name string) Insn   { return Insn{Op: OpGetGlobal, ID: name} }
func SetGlobal(name string) Insn   { return Insn{Op: OpSetGlobal, ID: name} }
func GetConstant(name string) Insn { return Insn{Op: OpGetConstant, ID: name} }
func SetConstant(name string) Insn { return Insn{Op: OpSetConstant, ID: name} }
func GetSpecial(key, typ int) Insn { return Insn{Op: OpGetSpecial, N: key, M: typ} }

func DefineMethod(name string, body *CodeBody) Insn {
	return Insn{Op: OpDefineMethod, ID: name, Body: body}
}

func DefineSMethod(name string, body *CodeBody) Insn {
	return Insn{Op: OpDefineSMethod, ID: name, Body: body}
}

func DefineClassInsn(name string, body *CodeBody, flags int) Insn {
	return Insn{Op: OpDefineClass, ID: name, Body: body, N: flags}
}

func Send(ci *CallInfo) Insn        { return Insn{Op: OpSend, Call: ci} }
func InvokeBlock(argc int) Insn     { return Insn{Op: OpInvokeBlock, Call: &CallInfo{Argc: argc}} }
func InvokeSuper(ci *CallInfo) Insn { return Insn{Op: OpInvokeSuper, Call: ci} }
func Leave() Insn                   { return Insn{Op: OpLeave} }
func Throw(kind int) Insn           { return Insn{Op: OpThrow, N: kind} }
func Once(body *CodeBody) Insn      { return Insn{Op: OpOnce, Body: body} }
func Jump(target int) Insn          { return Insn{Op: OpJump, Target: target} }

func Branch(kind BranchKind, target int) Insn {
	return Insn{Op: OpBranch, Branch: kind, Target: target}
}

func SendBranch(ci *CallInfo, kind BranchKind, target int) Insn {
	return Insn{Op: OpSendBranch, Call: ci, Branch: kind, Target: target}
}

func GetLocalBranch(idx, level int, kind BranchKind, target int) Insn {
	return Insn{Op: OpGetLocalBranch, Local: LocalRef{idx, level}, Branch: kind, Target: target}
}

func DupBranch(kind BranchKind, target int) Insn {
	return Insn{Op: OpDupBranch, Branch: kind, Target: target}
}

func GetLocalDupBranch(idx, level int, kind BranchKind, target int) Insn {
	return Insn{Op: OpGetLocalDupBranch, Local: LocalRef{idx, level}, Branch: kind, Target: target}
}

func GetLocalCheckMatchBranch(idx, level, flag int, kind BranchKind, target int) Insn {
	return Insn{Op: OpGetLocalCheckMatchBranch, Local: LocalRef{idx, level}, N: flag, Branch: kind, Target: target}
}

func Dup() Insn              { return Insn{Op: OpDup} }
func DupN(n int) Insn        { return Insn{Op: OpDupN, N: n} }
func Pop() Insn              { return Insn{Op: OpPop} }
func Swap() Insn             { return Insn{Op: OpSwap} }
func Reverse(n int) Insn     { return Insn{Op: OpReverse, N: n} }
func TopN(n int) Insn        { return Insn{Op: OpTopN, N: n} }
func SetN(n int) Insn        { return Insn{Op: OpSetN, N: n} }
func AdjustStack(n int) Insn { return Insn{Op: OpAdjustStack, N: n} }
