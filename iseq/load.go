package iseq

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// SupportedFormat is the bundle format major version this decoder understands.
const SupportedFormat = "v1"

// Bundle is a decoded source file: its top-level body plus every body it owns.
type Bundle struct {
	Path   string
	Main   *CodeBody
	Bodies []*CodeBody
}

// Body returns the body with the given name.
func (b *Bundle) Body(name string) (*CodeBody, bool) {
	for _, body := range b.Bodies {
		if body.Name == name {
			return body, true
		}
	}
	return nil, false
}

type document struct {
	Format string    `yaml:"format"`
	Path   string    `yaml:"path"`
	Main   string    `yaml:"main"`
	Bodies []bodyDoc `yaml:"bodies"`
}

type bodyDoc struct {
	Name   string      `yaml:"name"`
	Kind   string      `yaml:"kind"`
	Params paramsDoc   `yaml:"params"`
	Locals []string    `yaml:"locals"`
	Insns  []yaml.Node `yaml:"insns"`
	Catch  []catchDoc  `yaml:"catch"`
}

type paramsDoc struct {
	Lead      int          `yaml:"lead"`
	Opt       []int        `yaml:"opt"`
	Rest      *int         `yaml:"rest"`
	Post      int          `yaml:"post"`
	PostStart int          `yaml:"post_start"`
	Keywords  []keywordDoc `yaml:"keywords"`
	KwStart   int          `yaml:"kw_start"`
	KwRest    *int         `yaml:"kwrest"`
	Block     *int         `yaml:"block"`
}

type keywordDoc struct {
	Name     string    `yaml:"name"`
	Required bool      `yaml:"required"`
	Default  yaml.Node `yaml:"default"`
}

type catchDoc struct {
	Kind  string `yaml:"kind"`
	From  int    `yaml:"from"`
	To    int    `yaml:"to"`
	Body  string `yaml:"body"`
	Cont  int    `yaml:"cont"`
	Depth int    `yaml:"depth"`
}

type callDoc struct {
	Mid    string   `yaml:"mid"`
	Argc   int      `yaml:"argc"`
	Flags  []string `yaml:"flags"`
	FCall  bool     `yaml:"fcall"`
	KwArgs []string `yaml:"kwargs"`
	Block  string   `yaml:"block"`
}

var callFlagNames = map[string]CallFlag{
	"splat":    FlagArgsSplat,
	"blockarg": FlagArgsBlockArg,
	"fcall":    FlagFCall,
	"vcall":    FlagVCall,
	"kwarg":    FlagKwArg,
	"kw_splat": FlagKwSplat,
}

var catchKindNames = map[string]CatchKind{
	"rescue": CatchRescue,
	"ensure": CatchEnsure,
	"retry":  CatchRetry,
	"break":  CatchBreak,
	"redo":   CatchRedo,
	"next":   CatchNext,
}

// Decode parses a YAML bundle. filename is used in error messages and as the
// default source path.
func Decode(data []byte, filename string) (*Bundle, error) {
	doc, err := parse(data, filename)
	if err != nil {
		return nil, err
	}
	return doc.build(filename)
}

// LoadFiles reads and decodes bundles. Files are read and parsed concurrently,
// but bodies are built in argument order so that body ids are deterministic.
func LoadFiles(ctx context.Context, paths ...string) ([]*Bundle, error) {
	return LoadFilesWith(ctx, os.ReadFile, paths...)
}

// LoadFilesWith is LoadFiles with a custom file reader.
func LoadFilesWith(ctx context.Context, readFile func(string) ([]byte, error), paths ...string) ([]*Bundle, error) {
	docs := make([]*document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := readFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := parse(data, path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundles := make([]*Bundle, len(docs))
	for i, doc := range docs {
		b, err := doc.build(paths[i])
		if err != nil {
			return nil, err
		}
		bundles[i] = b
	}
	return bundles, nil
}

func parse(data []byte, filename string) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	if doc.Format == "" {
		return nil, fmt.Errorf("decode %s: missing format version", filename)
	}
	if !semver.IsValid(doc.Format) {
		return nil, fmt.Errorf("decode %s: invalid format version %q", filename, doc.Format)
	}
	if semver.Major(doc.Format) != SupportedFormat {
		return nil, fmt.Errorf("decode %s: unsupported format version %q (want %s.x)", filename, doc.Format, SupportedFormat)
	}
	return &doc, nil
}

func (doc *document) build(filename string) (*Bundle, error) {
	path := doc.Path
	if path == "" {
		path = filename
	}

	// first pass: allocate bodies so that instructions can refer to any of them by name.
	byName := make(map[string]*CodeBody, len(doc.Bodies))
	bundle := &Bundle{Path: path}
	for _, bd := range doc.Bodies {
		if bd.Name == "" {
			return nil, fmt.Errorf("%s: body without name", filename)
		}
		if _, dup := byName[bd.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate body %q", filename, bd.Name)
		}
		kind, ok := ParseKind(bd.Kind)
		if !ok {
			return nil, fmt.Errorf("%s: body %q: unknown kind %q", filename, bd.Name, bd.Kind)
		}
		body := New(bd.Name, kind, path)
		byName[bd.Name] = body
		bundle.Bodies = append(bundle.Bodies, body)
	}

	d := &decoder{filename: filename, bodies: byName}
	for i := range doc.Bodies {
		bd := &doc.Bodies[i]
		body := bundle.Bodies[i]
		if err := d.fill(body, bd); err != nil {
			return nil, fmt.Errorf("%s: body %q: %w", filename, bd.Name, err)
		}
	}

	switch {
	case doc.Main != "":
		main, ok := byName[doc.Main]
		if !ok {
			return nil, fmt.Errorf("%s: main body %q not found", filename, doc.Main)
		}
		bundle.Main = main
	case len(bundle.Bodies) > 0:
		bundle.Main = bundle.Bodies[0]
	default:
		return nil, fmt.Errorf("%s: no bodies", filename)
	}
	return bundle, nil
}

type decoder struct {
	filename string
	bodies   map[string]*CodeBody
}

func (d *decoder) body(name string) (*CodeBody, error) {
	b, ok := d.bodies[name]
	if !ok {
		return nil, fmt.Errorf("unknown body %q", name)
	}
	return b, nil
}

func (d *decoder) fill(body *CodeBody, bd *bodyDoc) error {
	body.Locals = bd.Locals

	p := bd.Params
	body.Params = Params{
		LeadNum:   p.Lead,
		OptPCs:    p.Opt,
		PostNum:   p.Post,
		PostStart: p.PostStart,
		KwStart:   p.KwStart,
	}
	if p.Rest != nil {
		body.Params.HasRest, body.Params.RestStart = true, *p.Rest
	}
	if p.KwRest != nil {
		body.Params.HasKwRest, body.Params.KwRest = true, *p.KwRest
	}
	if p.Block != nil {
		body.Params.HasBlock, body.Params.BlockStart = true, *p.Block
	}
	for _, kd := range p.Keywords {
		kw := Keyword{Name: kd.Name, Required: kd.Required}
		if kd.Default.Kind != 0 {
			lit, err := decodeLiteral(&kd.Default)
			if err != nil {
				return fmt.Errorf("keyword %s: %w", kd.Name, err)
			}
			kw.Default = lit
		}
		body.Params.Keywords = append(body.Params.Keywords, kw)
	}

	line := 0
	for pc := range bd.Insns {
		in, l, err := d.insn(&bd.Insns[pc])
		if err != nil {
			return fmt.Errorf("pc %d: %w", pc, err)
		}
		if l > 0 {
			line = l
		}
		in.Line = line
		body.Insns = append(body.Insns, in)
	}
	for pc, in := range body.Insns {
		if isJump(in.Op) && (in.Target < 0 || in.Target >= len(body.Insns)) {
			return fmt.Errorf("pc %d: %s target %d out of range", pc, in.Op, in.Target)
		}
	}

	for _, cd := range bd.Catch {
		kind, ok := catchKindNames[cd.Kind]
		if !ok {
			return fmt.Errorf("unknown catch kind %q", cd.Kind)
		}
		entry := CatchEntry{Kind: kind, Cont: cd.Cont, StackDepth: cd.Depth}
		if cd.Body != "" {
			handler, err := d.body(cd.Body)
			if err != nil {
				return err
			}
			entry.Body = handler
		}
		to := cd.To
		if to <= cd.From {
			to = cd.From + 1
		}
		body.AddCatch(cd.From, to, entry)
	}
	return nil
}

func isJump(op Opcode) bool {
	switch op {
	case OpJump, OpBranch, OpSendBranch, OpGetLocalBranch, OpDupBranch, OpGetLocalDupBranch, OpGetLocalCheckMatchBranch:
		return true
	}
	return false
}

// insn decodes `[line?, opcode, operands...]`.
func (d *decoder) insn(node *yaml.Node) (Insn, int, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return Insn{}, 0, fmt.Errorf("instruction must be a non-empty sequence")
	}
	args := node.Content
	line := 0
	if args[0].Tag == "!!int" {
		if err := args[0].Decode(&line); err != nil {
			return Insn{}, 0, err
		}
		args = args[1:]
		if len(args) == 0 {
			return Insn{}, 0, fmt.Errorf("missing opcode")
		}
	}
	op, ok := ParseOpcode(args[0].Value)
	if !ok {
		return Insn{}, 0, fmt.Errorf("unknown opcode %q", args[0].Value)
	}
	o := &operands{op: op, args: args[1:]}
	in := Insn{Op: op}

	switch op {
	case OpNop, OpBodyStart, OpPutNil, OpPutSelf, OpToString, OpFreezeString, OpIntern,
		OpConcatArray, OpLeave, OpDup, OpPop, OpSwap:
	case OpPutObject, OpDupArray, OpDupHash:
		in.Lit = o.lit(0)
	case OpPutString:
		in.Lit = Str(o.str(0))
	case OpPutSpecialObject, OpNewArray, OpNewHash, OpNewRange, OpConcatStrings, OpSplatArray,
		OpCheckType, OpCheckMatch, OpThrow, OpDupN, OpReverse, OpTopN, OpSetN, OpAdjustStack:
		in.N = o.int(0)
	case OpToRegexp, OpExpandArray, OpCheckKeyword, OpGetSpecial:
		in.N, in.M = o.int(0), o.optInt(1)
	case OpDefined:
		in.N, in.ID = o.int(0), o.optStr(1)
	case OpGetLocal, OpSetLocal, OpGetBlockParam, OpSetBlockParam, OpGetBlockParamProxy:
		in.Local = LocalRef{Idx: o.int(0), Level: o.optInt(1)}
	case OpGetInstanceVariable, OpSetInstanceVariable, OpGetClassVariable, OpSetClassVariable,
		OpGetGlobal, OpSetGlobal, OpGetConstant, OpSetConstant:
		in.ID = o.str(0)
	case OpDefineMethod, OpDefineSMethod:
		in.ID, in.Body = o.str(0), d.bodyOperand(o, 1)
	case OpDefineClass:
		in.ID, in.Body, in.N = o.str(0), d.bodyOperand(o, 1), o.optInt(2)
	case OpSend, OpInvokeSuper:
		in.Call = d.call(o, 0)
	case OpInvokeBlock:
		if len(o.args) > 0 && o.args[0].Kind == yaml.ScalarNode {
			in.Call = &CallInfo{Argc: o.int(0)}
		} else {
			in.Call = d.call(o, 0)
		}
	case OpOnce:
		in.Body = d.bodyOperand(o, 0)
	case OpJump:
		in.Target = o.int(0)
	case OpBranch:
		in.Branch, in.Target = o.branch(0), o.int(1)
	case OpSendBranch:
		in.Call, in.Branch, in.Target = d.call(o, 0), o.branch(1), o.int(2)
	case OpGetLocalBranch, OpGetLocalDupBranch:
		in.Local = LocalRef{Idx: o.int(0), Level: o.int(1)}
		in.Branch, in.Target = o.branch(2), o.int(3)
	case OpDupBranch:
		in.Branch, in.Target = o.branch(0), o.int(1)
	case OpGetLocalCheckMatchBranch:
		in.Local = LocalRef{Idx: o.int(0), Level: o.int(1)}
		in.N, in.Branch, in.Target = o.int(2), o.branch(3), o.int(4)
	default:
		return Insn{}, 0, fmt.Errorf("opcode %s has no decoder", op)
	}
	if o.err != nil {
		return Insn{}, 0, o.err
	}
	return in, line, nil
}

func (d *decoder) bodyOperand(o *operands, i int) *CodeBody {
	name := o.str(i)
	if o.err != nil {
		return nil
	}
	b, err := d.body(name)
	if err != nil {
		o.err = err
	}
	return b
}

func (d *decoder) call(o *operands, i int) *CallInfo {
	n := o.node(i)
	if n == nil {
		return nil
	}
	var cd callDoc
	if err := n.Decode(&cd); err != nil {
		o.err = fmt.Errorf("%s: call info: %w", o.op, err)
		return nil
	}
	ci := &CallInfo{Mid: cd.Mid, Argc: cd.Argc, KwArgs: cd.KwArgs}
	for _, name := range cd.Flags {
		f, ok := callFlagNames[name]
		if !ok {
			o.err = fmt.Errorf("%s: unknown call flag %q", o.op, name)
			return nil
		}
		ci.Flags |= f
	}
	if cd.FCall {
		ci.Flags |= FlagFCall
	}
	if len(cd.KwArgs) > 0 {
		ci.Flags |= FlagKwArg
	}
	if cd.Block != "" {
		b, err := d.body(cd.Block)
		if err != nil {
			o.err = err
			return nil
		}
		ci.Block = b
	}
	return ci
}

// operands collects the first decoding error so that the opcode switch stays flat.
type operands struct {
	op   Opcode
	args []*yaml.Node
	err  error
}

func (o *operands) node(i int) *yaml.Node {
	if o.err != nil {
		return nil
	}
	if i >= len(o.args) {
		o.err = fmt.Errorf("%s: missing operand #%d", o.op, i)
		return nil
	}
	return o.args[i]
}

func (o *operands) int(i int) int {
	n := o.node(i)
	if n == nil {
		return 0
	}
	var v int
	if err := n.Decode(&v); err != nil {
		o.err = fmt.Errorf("%s: operand #%d: %w", o.op, i, err)
	}
	return v
}

func (o *operands) optInt(i int) int {
	if i >= len(o.args) {
		return 0
	}
	return o.int(i)
}

func (o *operands) str(i int) string {
	n := o.node(i)
	if n == nil {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		o.err = fmt.Errorf("%s: operand #%d: want scalar", o.op, i)
		return ""
	}
	return n.Value
}

func (o *operands) optStr(i int) string {
	if i >= len(o.args) {
		return ""
	}
	return o.str(i)
}

func (o *operands) branch(i int) BranchKind {
	switch s := o.str(i); s {
	case "if":
		return BranchIf
	case "unless":
		return BranchUnless
	case "nil":
		return BranchNil
	default:
		if o.err == nil {
			o.err = fmt.Errorf("%s: unknown branch kind %q", o.op, s)
		}
	}
	return 0
}

func (o *operands) lit(i int) *Literal {
	n := o.node(i)
	if n == nil {
		return nil
	}
	l, err := decodeLiteral(n)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", o.op, err)
	}
	return l
}

// decodeLiteral maps YAML values onto literals. Plain strings starting with
// ':' are symbols; the tags !class, !regexp, !rational and !range select the
// remaining kinds.
func decodeLiteral(n *yaml.Node) (*Literal, error) {
	switch n.Tag {
	case "!class":
		return Class(n.Value), nil
	case "!regexp":
		return &Literal{Kind: LitRegexp, Str: n.Value}, nil
	case "!rational":
		return &Literal{Kind: LitRational, Str: n.Value}, nil
	case "!range":
		if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
			return nil, fmt.Errorf("range literal needs [begin, end]")
		}
		b, err := decodeLiteral(n.Content[0])
		if err != nil {
			return nil, err
		}
		e, err := decodeLiteral(n.Content[1])
		if err != nil {
			return nil, err
		}
		return Range(b, e), nil
	}

	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return Nil(), nil
		case "!!bool":
			var v bool
			if err := n.Decode(&v); err != nil {
				return nil, err
			}
			return Bool(v), nil
		case "!!int":
			var v int64
			if err := n.Decode(&v); err != nil {
				return nil, err
			}
			return Int(v), nil
		case "!!float":
			var v float64
			if err := n.Decode(&v); err != nil {
				return nil, err
			}
			return Float(v), nil
		}
		if n.Style&yaml.TaggedStyle == 0 && len(n.Value) > 1 && strings.HasPrefix(n.Value, ":") {
			return Sym(n.Value[1:]), nil
		}
		return Str(n.Value), nil
	case yaml.SequenceNode:
		elems := make([]*Literal, len(n.Content))
		for i, c := range n.Content {
			l, err := decodeLiteral(c)
			if err != nil {
				return nil, err
			}
			elems[i] = l
		}
		return Ary(elems...), nil
	case yaml.MappingNode:
		lit := &Literal{Kind: LitHash}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := decodeLiteral(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := decodeLiteral(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			lit.Pairs = append(lit.Pairs, LiteralPair{Key: k, Value: v})
		}
		return lit, nil
	}
	return nil, fmt.Errorf("unsupported literal node at line %d", n.Line)
}
