package ucl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/pathlang"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// ParseError is a syntax failure with enough position and context
// information for an editor integration to underline the offending
// token (§4.4: parser failures carry line/column, expected-token set,
// and observed token).
type ParseError struct {
	Line, Col int
	Expected  []string
	Observed  string
}

func (e *ParseError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("ucl: unexpected %s at %d:%d", e.Observed, e.Line, e.Col)
	}
	return fmt.Sprintf("ucl: at %d:%d expected one of [%s], got %s", e.Line, e.Col, strings.Join(e.Expected, ", "), e.Observed)
}

// Parse lexes and parses src into an ordered command list.
func Parse(src string) ([]Command, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

// Parser is a recursive-descent parser over a pre-lexed token stream.
type Parser struct {
	toks []Token
	pos  int
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool { return p.cur().Type == TokEOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) observed() string {
	t := p.cur()
	if t.Type == TokEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s(%q)", tokenTypeName(t.Type), t.Literal)
}

func (p *Parser) errExpected(expected ...string) error {
	t := p.cur()
	return &ParseError{Line: t.Line, Col: t.Col, Expected: expected, Observed: p.observed()}
}

func (p *Parser) skipSemis() {
	for p.cur().Type == TokSemi {
		p.advance()
	}
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	t := p.cur()
	if t.Type != TokKeyword || t.Literal != kw {
		return Token{}, p.errExpected(kw)
	}
	return p.advance(), nil
}

func (p *Parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.Type == TokKeyword && t.Literal == kw
}

func (p *Parser) expectIdentLike() (string, error) {
	t := p.cur()
	switch t.Type {
	case TokIdent, TokKeyword, TokBlockID:
		p.advance()
		return t.Literal, nil
	}
	return "", p.errExpected("identifier")
}

func (p *Parser) expectBlockRef() (string, error) {
	t := p.cur()
	if t.Type == TokBlockID || t.Type == TokIdent {
		p.advance()
		return t.Literal, nil
	}
	return "", p.errExpected("block id")
}

func (p *Parser) expectString() (string, error) {
	t := p.cur()
	if t.Type != TokString {
		return "", p.errExpected("string")
	}
	p.advance()
	return t.Literal, nil
}

// parseProgram consumes statements until EOF. A leading `ATOMIC { ... }`
// block, or any other keyword-led statement, is dispatched in
// parseStatement; statement separators are `;` or a bare newline.
func (p *Parser) parseProgram() ([]Command, error) {
	var cmds []Command
	p.skipSemis()
	for !p.atEnd() {
		cmd, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
		if !p.atEnd() && p.cur().Type != TokSemi && p.cur().Literal != "}" {
			return nil, p.errExpected(";", "newline")
		}
		p.skipSemis()
	}
	return cmds, nil
}

func (p *Parser) parseStatement() (Command, error) {
	t := p.cur()
	if t.Type != TokKeyword {
		return nil, p.errExpected("EDIT", "APPEND", "MOVE", "DELETE", "LINK", "UNLINK", "PRUNE", "SNAPSHOT", "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "ATOMIC")
	}
	switch t.Literal {
	case "EDIT":
		return p.parseEdit()
	case "APPEND":
		return p.parseAppend()
	case "MOVE":
		return p.parseMove()
	case "DELETE":
		return p.parseDelete()
	case "LINK":
		return p.parseLink()
	case "UNLINK":
		return p.parseUnlink()
	case "PRUNE":
		return p.parsePrune()
	case "SNAPSHOT":
		return p.parseSnapshot()
	case "BEGIN":
		return p.parseBegin()
	case "COMMIT":
		return p.parseCommit()
	case "ROLLBACK":
		return p.parseRollback()
	case "SAVEPOINT":
		return p.parseSavepoint()
	case "ATOMIC":
		return p.parseAtomic()
	case "GOTO":
		return p.parseGoto()
	case "BACK":
		return p.parseBack()
	case "EXPAND":
		return p.parseExpand()
	case "FOLLOW":
		return p.parseFollow()
	case "PATH":
		return p.parsePathCmd()
	case "SEARCH":
		return p.parseSearch()
	case "FIND":
		return p.parseFind()
	case "VIEW":
		return p.parseView()
	case "CTX":
		return p.parseCtx()
	}
	return nil, p.errExpected("command keyword")
}

// --- Mutation commands (§4.4) ---

func (p *Parser) parseEdit() (Command, error) {
	p.advance() // EDIT
	block, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	pathTok := p.cur()
	if pathTok.Type == TokSymbol && pathTok.Literal == ":" {
		return nil, &ParseError{Line: pathTok.Line, Col: pathTok.Col, Expected: []string{"="}, Observed: p.observed()}
	}
	pathStr, err := p.parsePathExpr()
	if err != nil {
		return nil, err
	}
	path, err := pathlang.Parse(pathStr)
	if err != nil {
		return nil, &ParseError{Line: pathTok.Line, Col: pathTok.Col, Expected: []string{"path expression"}, Observed: pathStr}
	}
	op, err := p.parseAssignOp()
	if err != nil {
		return nil, err
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return EditCommand{Block: block, Path: path, Op: op, Value: val}, nil
}

// parsePathExpr reassembles a dotted/bracketed path from its component
// tokens (IDENT, '.', '[', NUMBER, ':', ']') into the raw string pathlang
// expects; it stops at the assignment operator.
func (p *Parser) parsePathExpr() (string, error) {
	var b strings.Builder
	t := p.cur()
	if t.Type != TokIdent && t.Type != TokKeyword {
		return "", p.errExpected("path")
	}
	b.WriteString(t.Literal)
	p.advance()
	for {
		t = p.cur()
		if t.Type == TokSymbol && t.Literal == "." {
			p.advance()
			id, err := p.expectIdentLike()
			if err != nil {
				return "", err
			}
			b.WriteByte('.')
			b.WriteString(id)
			continue
		}
		if t.Type == TokSymbol && t.Literal == "[" {
			p.advance()
			b.WriteByte('[')
			for {
				inner := p.cur()
				if inner.Type == TokSymbol && inner.Literal == "]" {
					p.advance()
					b.WriteByte(']')
					break
				}
				b.WriteString(inner.Literal)
				p.advance()
			}
			continue
		}
		break
	}
	return b.String(), nil
}

func (p *Parser) parseAssignOp() (pathlang.Op, error) {
	t := p.cur()
	if t.Type != TokSymbol {
		return "", p.errExpected("=", "+=", "-=")
	}
	switch t.Literal {
	case "=":
		p.advance()
		return pathlang.OpSet, nil
	case "+=":
		p.advance()
		return pathlang.OpAppend, nil
	case "-=":
		p.advance()
		return pathlang.OpRemove, nil
	}
	return "", p.errExpected("=", "+=", "-=")
}

func (p *Parser) parseValue() (any, error) {
	t := p.cur()
	switch t.Type {
	case TokString:
		p.advance()
		return t.Literal, nil
	case TokNumber:
		p.advance()
		if strings.ContainsAny(t.Literal, ".") {
			f, err := strconv.ParseFloat(t.Literal, 64)
			if err != nil {
				return nil, err
			}
			return f, nil
		}
		n, err := strconv.Atoi(t.Literal)
		if err != nil {
			return nil, err
		}
		return n, nil
	case TokBlockID:
		p.advance()
		return t.Literal, nil
	case TokIdent:
		p.advance()
		switch strings.ToLower(t.Literal) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return t.Literal, nil
	}
	return nil, p.errExpected("value")
}

func (p *Parser) parseAppend() (Command, error) {
	p.advance() // APPEND
	parent, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	ctype, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	props := map[string]string{}
	if p.isKeyword("WITH") {
		p.advance()
		props, err = p.parseProps()
		if err != nil {
			return nil, err
		}
	}
	if t := p.cur(); !(t.Type == TokSymbol && t.Literal == "::") {
		return nil, p.errExpected("::")
	}
	p.advance()

	switch t := p.cur(); t.Type {
	case TokFence:
		p.advance()
		return AppendCommand{Parent: parent, ContentType: ctype, Props: props, Body: t.Literal, BodyKind: AppendBodyFence, BodyLang: t.Lang}, nil
	case TokPipeTable:
		p.advance()
		return AppendCommand{Parent: parent, ContentType: ctype, Props: props, Body: t.Literal, BodyKind: AppendBodyTable}, nil
	}

	body, err := p.expectString()
	if err != nil {
		return nil, err
	}
	return AppendCommand{Parent: parent, ContentType: ctype, Props: props, Body: body, BodyKind: AppendBodyString}, nil
}

// parseProps parses a comma-separated "key=value" list until the next
// statement boundary, "::", or a keyword that cannot start a value. A
// `key: value` pair (colon instead of '=') is a diagnosed mistake rather
// than a silent parse (§4.4).
func (p *Parser) parseProps() (map[string]string, error) {
	props := map[string]string{}
	for {
		key, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		t := p.cur()
		if t.Type == TokSymbol && t.Literal == ":" {
			return nil, ucerr.New(ucerr.KindSyntax, ucerr.CodeColonInKeyValue, "use '=' in key-value pairs, not ':'").WithLocation(t.Line, t.Col)
		}
		if !(t.Type == TokSymbol && t.Literal == "=") {
			return nil, p.errExpected("=")
		}
		p.advance()
		val, err := p.parsePropValue()
		if err != nil {
			return nil, err
		}
		props[key] = val
		if t := p.cur(); t.Type == TokSymbol && t.Literal == "," {
			p.advance()
			continue
		}
		break
	}
	return props, nil
}

func (p *Parser) parsePropValue() (string, error) {
	var parts []string
	for {
		t := p.cur()
		switch t.Type {
		case TokString:
			p.advance()
			return t.Literal, nil
		case TokIdent, TokNumber, TokBlockID:
			p.advance()
			parts = append(parts, t.Literal)
		default:
			if len(parts) == 0 {
				return "", p.errExpected("value")
			}
			return strings.Join(parts, ""), nil
		}
		if t := p.cur(); t.Type == TokSymbol && t.Literal == "," {
			if la := p.toks[min(p.pos+1, len(p.toks)-1)]; la.Type != TokIdent || !isPropKeyFollowedByEquals(p, p.pos+1) {
				p.advance()
				parts = append(parts, ",")
				continue
			}
		}
		return strings.Join(parts, ""), nil
	}
}

func isPropKeyFollowedByEquals(p *Parser, identPos int) bool {
	return identPos+1 < len(p.toks) && p.toks[identPos+1].Type == TokSymbol && p.toks[identPos+1].Literal == "="
}

func (p *Parser) parseMove() (Command, error) {
	p.advance() // MOVE
	block, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	switch {
	case p.isKeyword("TO"):
		p.advance()
		parent, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		cmd := MoveCommand{Block: block, Kind: MoveTo, Parent: parent}
		if p.isKeyword("AT") {
			p.advance()
			n, err := p.expectInt()
			if err != nil {
				return nil, err
			}
			cmd.Index = &n
		}
		return cmd, nil
	case p.isKeyword("BEFORE"):
		p.advance()
		sib, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		return MoveCommand{Block: block, Kind: MoveBefore, Sibling: sib}, nil
	case p.isKeyword("AFTER"):
		p.advance()
		sib, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		return MoveCommand{Block: block, Kind: MoveAfter, Sibling: sib}, nil
	}
	return nil, p.errExpected("TO", "BEFORE", "AFTER")
}

func (p *Parser) expectInt() (int, error) {
	t := p.cur()
	if t.Type != TokNumber {
		return 0, p.errExpected("integer")
	}
	p.advance()
	return strconv.Atoi(t.Literal)
}

func (p *Parser) parseDelete() (Command, error) {
	p.advance() // DELETE
	if p.isKeyword("WHERE") {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		return DeleteCommand{Where: cond}, nil
	}
	block, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	mode := DeleteDefault
	switch {
	case p.isKeyword("CASCADE"):
		p.advance()
		mode = DeleteCascade
	case p.isKeyword("PRESERVE_CHILDREN"):
		p.advance()
		mode = DeletePreserveChildren
	}
	return DeleteCommand{Block: block, Mode: mode}, nil
}

func (p *Parser) parseLink() (Command, error) {
	p.advance() // LINK
	src, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	edgeType, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	target, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	props := map[string]string{}
	if p.isKeyword("WITH") {
		p.advance()
		props, err = p.parseProps()
		if err != nil {
			return nil, err
		}
	}
	return LinkCommand{Source: src, EdgeType: edgeType, Target: target, Props: props}, nil
}

func (p *Parser) parseUnlink() (Command, error) {
	p.advance() // UNLINK
	src, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	edgeType, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	target, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	return UnlinkCommand{Source: src, EdgeType: edgeType, Target: target}, nil
}

func (p *Parser) parsePrune() (Command, error) {
	p.advance() // PRUNE
	cmd := PruneCommand{}
	switch {
	case p.isKeyword("UNREACHABLE"):
		p.advance()
		cmd.Unreachable = true
	case p.isKeyword("WHERE"):
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		cmd.Where = cond
	default:
		return nil, p.errExpected("UNREACHABLE", "WHERE")
	}
	if p.isKeyword("DRY_RUN") {
		p.advance()
		cmd.DryRun = true
	}
	return cmd, nil
}

func (p *Parser) parseSnapshot() (Command, error) {
	p.advance() // SNAPSHOT
	t := p.cur()
	if t.Type != TokKeyword {
		return nil, p.errExpected("CREATE", "RESTORE", "LIST", "DELETE")
	}
	switch t.Literal {
	case "CREATE":
		p.advance()
		name, err := p.expectString()
		if err != nil {
			return nil, err
		}
		cmd := SnapshotCommand{Action: SnapshotCreate, Name: name}
		if p.isKeyword("WITH") {
			p.advance()
			props, err := p.parseProps()
			if err != nil {
				return nil, err
			}
			cmd.Description = props["description"]
		}
		return cmd, nil
	case "RESTORE":
		p.advance()
		name, err := p.expectString()
		if err != nil {
			return nil, err
		}
		return SnapshotCommand{Action: SnapshotRestore, Name: name}, nil
	case "LIST":
		p.advance()
		return SnapshotCommand{Action: SnapshotList}, nil
	case "DELETE":
		p.advance()
		name, err := p.expectString()
		if err != nil {
			return nil, err
		}
		return SnapshotCommand{Action: SnapshotDelete, Name: name}, nil
	}
	return nil, p.errExpected("CREATE", "RESTORE", "LIST", "DELETE")
}

func (p *Parser) parseBegin() (Command, error) {
	p.advance() // BEGIN
	if _, err := p.expectKeyword("TRANSACTION"); err != nil {
		return nil, err
	}
	name := ""
	if t := p.cur(); t.Type == TokIdent {
		name = t.Literal
		p.advance()
	}
	return TransactionCommand{Action: TxBegin, Name: name}, nil
}

func (p *Parser) parseCommit() (Command, error) {
	p.advance() // COMMIT
	name := ""
	if t := p.cur(); t.Type == TokIdent {
		name = t.Literal
		p.advance()
	}
	return TransactionCommand{Action: TxCommit, Name: name}, nil
}

func (p *Parser) parseRollback() (Command, error) {
	p.advance() // ROLLBACK
	cmd := TransactionCommand{Action: TxRollback}
	if p.isKeyword("TO") {
		p.advance()
		id, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		cmd.Savepoint = id
		return cmd, nil
	}
	if t := p.cur(); t.Type == TokIdent {
		cmd.Name = t.Literal
		p.advance()
	}
	return cmd, nil
}

func (p *Parser) parseSavepoint() (Command, error) {
	p.advance() // SAVEPOINT
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return TransactionCommand{Action: TxSavepoint, Name: name}, nil
}

func (p *Parser) parseAtomic() (Command, error) {
	p.advance() // ATOMIC
	t := p.cur()
	if !(t.Type == TokSymbol && t.Literal == "{") {
		return nil, p.errExpected("{")
	}
	p.advance()
	p.skipSemis()
	var body []Command
	for {
		t := p.cur()
		if t.Type == TokSymbol && t.Literal == "}" {
			p.advance()
			break
		}
		if p.atEnd() {
			return nil, p.errExpected("}")
		}
		cmd, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, cmd)
		p.skipSemis()
	}
	return AtomicCommand{Body: body}, nil
}

// --- Traversal & context commands (§4.6.6) ---

func (p *Parser) parseGoto() (Command, error) {
	p.advance()
	target, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	return GotoCommand{Target: target}, nil
}

func (p *Parser) parseBack() (Command, error) {
	p.advance()
	steps := 1
	if t := p.cur(); t.Type == TokNumber {
		n, err := p.expectInt()
		if err != nil {
			return nil, err
		}
		steps = n
	}
	return BackCommand{Steps: steps}, nil
}

func (p *Parser) parseExpand() (Command, error) {
	p.advance()
	block, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	dirTok, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	cmd := ExpandCommand{Block: block, Direction: Direction(strings.ToUpper(dirTok))}
	quals, err := p.parseQualifiers()
	if err != nil {
		return nil, err
	}
	if v, ok := quals["DEPTH"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ucl: invalid DEPTH=%q", v)
		}
		cmd.Depth, cmd.HasDepth = n, true
	}
	cmd.Mode = quals["MODE"]
	if v, ok := quals["ROLES"]; ok {
		cmd.Roles = strings.Split(v, ",")
	}
	if v, ok := quals["TAGS"]; ok {
		cmd.Tags = strings.Split(v, ",")
	}
	return cmd, nil
}

// parseQualifiers parses zero or more `KEY=value` pairs (possibly
// comma-joined lists as the value, e.g. `TAGS=a,b,c`) until the next
// statement boundary.
func (p *Parser) parseQualifiers() (map[string]string, error) {
	out := map[string]string{}
	for {
		t := p.cur()
		if t.Type != TokIdent && t.Type != TokKeyword {
			break
		}
		if la := p.toks[min(p.pos+1, len(p.toks)-1)]; !(la.Type == TokSymbol && la.Literal == "=") {
			break
		}
		key := strings.ToUpper(t.Literal)
		p.advance()
		p.advance() // '='
		val, err := p.parseQualifierValue()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func (p *Parser) parseQualifierValue() (string, error) {
	var parts []string
	for {
		t := p.cur()
		switch t.Type {
		case TokString, TokIdent, TokNumber, TokBlockID:
			parts = append(parts, t.Literal)
			p.advance()
		default:
			return strings.Join(parts, ""), nil
		}
		if t := p.cur(); t.Type == TokSymbol && t.Literal == "," {
			nextIsNewQual := false
			if la := p.toks[min(p.pos+1, len(p.toks)-1)]; la.Type == TokIdent || la.Type == TokKeyword {
				if la2 := p.toks[min(p.pos+2, len(p.toks)-1)]; la2.Type == TokSymbol && la2.Literal == "=" {
					nextIsNewQual = true
				}
			}
			if nextIsNewQual {
				return strings.Join(parts, ""), nil
			}
			p.advance()
			parts = append(parts, ",")
			continue
		}
		return strings.Join(parts, ""), nil
	}
}

func (p *Parser) parseFollow() (Command, error) {
	p.advance()
	block, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	edgeType, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	cmd := FollowCommand{Block: block, EdgeType: edgeType}
	if p.isKeyword("TO") {
		p.advance()
		target, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		cmd.Target, cmd.HasTarget = target, true
	}
	return cmd, nil
}

func (p *Parser) parsePathCmd() (Command, error) {
	p.advance()
	from, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	to, err := p.expectBlockRef()
	if err != nil {
		return nil, err
	}
	cmd := PathCommand{From: from, To: to}
	quals, err := p.parseQualifiers()
	if err != nil {
		return nil, err
	}
	if v, ok := quals["MAX"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ucl: invalid MAX=%q", v)
		}
		cmd.Max, cmd.HasMax = n, true
	}
	return cmd, nil
}

func (p *Parser) parseSearch() (Command, error) {
	p.advance()
	q, err := p.expectString()
	if err != nil {
		return nil, err
	}
	cmd := SearchCommand{Query: q}
	quals, err := p.parseQualifiers()
	if err != nil {
		return nil, err
	}
	if v, ok := quals["LIMIT"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ucl: invalid LIMIT=%q", v)
		}
		cmd.Limit, cmd.HasLimit = n, true
	}
	if v, ok := quals["MIN_SIMILARITY"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("ucl: invalid MIN_SIMILARITY=%q", v)
		}
		cmd.MinSimilarity, cmd.HasMinSim = f, true
	}
	return cmd, nil
}

func (p *Parser) parseFind() (Command, error) {
	p.advance()
	cmd := FindCommand{}
	quals, err := p.parseQualifiers()
	if err != nil {
		return nil, err
	}
	cmd.Role = quals["ROLE"]
	cmd.Tag = quals["TAG"]
	cmd.Label = quals["LABEL"]
	cmd.Pattern = quals["PATTERN"]
	if v, ok := quals["TAGS"]; ok {
		cmd.Tags = strings.Split(v, ",")
	}
	return cmd, nil
}

func (p *Parser) parseView() (Command, error) {
	p.advance()
	cmd := ViewCommand{}
	if p.isKeyword("NEIGHBORHOOD") {
		p.advance()
		cmd.Target = ViewNeighborhood
	} else {
		block, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		cmd.Target = ViewBlock
		cmd.Block = block
	}
	quals, err := p.parseQualifiers()
	if err != nil {
		return nil, err
	}
	cmd.Mode = quals["MODE"]
	if v, ok := quals["DEPTH"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ucl: invalid DEPTH=%q", v)
		}
		cmd.Depth, cmd.HasDepth = n, true
	}
	return cmd, nil
}

func (p *Parser) parseCtx() (Command, error) {
	p.advance() // CTX
	t := p.cur()
	if t.Type != TokKeyword {
		return nil, p.errExpected("ADD", "REMOVE", "CLEAR", "FOCUS", "RESULTS", "RENDER", "STATS", "COMPRESS", "PRUNE")
	}
	switch t.Literal {
	case "ADD":
		p.advance()
		block, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		cmd := CtxCommand{Action: CtxAdd, Block: block, HasBlock: true}
		if p.isKeyword("WITH") {
			p.advance()
			props, err := p.parseProps()
			if err != nil {
				return nil, err
			}
			cmd.Reason = props["reason"]
			if v, ok := props["relevance"]; ok {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, fmt.Errorf("ucl: invalid relevance=%q", v)
				}
				cmd.Relevance, cmd.HasRel = f, true
			}
		}
		return cmd, nil
	case "REMOVE":
		p.advance()
		block, err := p.expectBlockRef()
		if err != nil {
			return nil, err
		}
		return CtxCommand{Action: CtxRemove, Block: block, HasBlock: true}, nil
	case "CLEAR":
		p.advance()
		return CtxCommand{Action: CtxClear}, nil
	case "FOCUS":
		p.advance()
		cmd := CtxCommand{Action: CtxFocus}
		if t := p.cur(); t.Type == TokBlockID || t.Type == TokIdent {
			cmd.Block, cmd.HasBlock = t.Literal, true
			p.advance()
		}
		return cmd, nil
	case "RESULTS":
		p.advance()
		return CtxCommand{Action: CtxAddResults}, nil
	case "RENDER":
		p.advance()
		return CtxCommand{Action: CtxRender}, nil
	case "STATS":
		p.advance()
		return CtxCommand{Action: CtxStats}, nil
	case "COMPRESS":
		p.advance()
		return CtxCommand{Action: CtxCompress}, nil
	case "PRUNE":
		p.advance()
		return CtxCommand{Action: CtxPrune}, nil
	}
	return nil, p.errExpected("ADD", "REMOVE", "CLEAR", "FOCUS", "RESULTS", "RENDER", "STATS", "COMPRESS", "PRUNE")
}

// --- Conditions (§4.4) ---

func (p *Parser) parseCondition() (Condition, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = OrCondition{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = AndCondition{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Condition, error) {
	if p.isKeyword("NOT") {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NotCondition{Inner: inner}, nil
	}
	if t := p.cur(); t.Type == TokSymbol && t.Literal == "(" {
		p.advance()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.cur(); !(t.Type == TokSymbol && t.Literal == ")") {
			return nil, p.errExpected(")")
		}
		p.advance()
		return cond, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Condition, error) {
	field, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	t := p.cur()
	if t.Type == TokKeyword && t.Literal == "CONTAINS" {
		p.advance()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return ContainsCondition{Field: field, Value: val}, nil
	}
	if t.Type == TokKeyword && t.Literal == "MATCHES" {
		p.advance()
		pat, err := p.expectString()
		if err != nil {
			return nil, err
		}
		return MatchesCondition{Field: field, Pattern: pat}, nil
	}
	if t.Type == TokSymbol && t.Literal == ":" {
		return nil, ucerr.New(ucerr.KindSyntax, ucerr.CodeColonInKeyValue, "use a comparison operator, not ':'").WithLocation(t.Line, t.Col)
	}
	if t.Type != TokSymbol {
		return nil, p.errExpected("=", "!=", ">", ">=", "<", "<=", "CONTAINS", "MATCHES")
	}
	op := t.Literal
	switch op {
	case "=", "!=", ">", ">=", "<", "<=":
		p.advance()
	default:
		return nil, p.errExpected("=", "!=", ">", ">=", "<", "<=", "CONTAINS", "MATCHES")
	}
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return Comparison{Field: field, Op: op, Value: val}, nil
}
