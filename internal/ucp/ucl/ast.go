package ucl

import "github.com/arthur-debert/ucp/internal/ucp/pathlang"

// Command is the marker interface for every parsed UCL statement (§4.4).
type Command interface{ commandNode() }

type EditCommand struct {
	Block string
	Path  pathlang.Path
	Op    pathlang.Op
	Value any
}

// AppendBodyKind distinguishes the three surface forms APPEND's "::"
// body may take (§4.4): a quoted string, a fenced code block, or a
// pipe-style table literal. Body always carries the raw text; BodyLang
// is only meaningful for AppendBodyFence.
type AppendBodyKind int

const (
	AppendBodyString AppendBodyKind = iota
	AppendBodyFence
	AppendBodyTable
)

type AppendCommand struct {
	Parent      string
	ContentType string
	Props       map[string]string
	Body        string
	BodyKind    AppendBodyKind
	BodyLang    string // fence info string, set when BodyKind == AppendBodyFence
}

type MoveKind int

const (
	MoveTo MoveKind = iota
	MoveBefore
	MoveAfter
)

type MoveCommand struct {
	Block   string
	Kind    MoveKind
	Parent  string
	Index   *int
	Sibling string
}

type DeleteMode int

const (
	DeleteDefault DeleteMode = iota
	DeleteCascade
	DeletePreserveChildren
)

type DeleteCommand struct {
	Block string
	Mode  DeleteMode
	Where Condition // set when DELETE WHERE <condition> is used
}

type LinkCommand struct {
	Source, EdgeType, Target string
	Props                    map[string]string
}

type UnlinkCommand struct {
	Source, EdgeType, Target string
}

type PruneCommand struct {
	Unreachable bool
	Where       Condition
	DryRun      bool
}

type SnapshotAction string

const (
	SnapshotCreate  SnapshotAction = "CREATE"
	SnapshotRestore SnapshotAction = "RESTORE"
	SnapshotList    SnapshotAction = "LIST"
	SnapshotDelete  SnapshotAction = "DELETE"
)

type SnapshotCommand struct {
	Action      SnapshotAction
	Name        string
	Description string
}

type TransactionAction string

const (
	TxBegin     TransactionAction = "BEGIN"
	TxCommit    TransactionAction = "COMMIT"
	TxRollback  TransactionAction = "ROLLBACK"
	TxSavepoint TransactionAction = "SAVEPOINT"
)

type TransactionCommand struct {
	Action    TransactionAction
	Name      string // transaction name (BEGIN/COMMIT/ROLLBACK) or savepoint name (SAVEPOINT)
	Savepoint string // set for ROLLBACK TO <savepoint>
}

type AtomicCommand struct {
	Body []Command
}

// --- Traversal commands (§4.6.6) ---

type Direction string

const (
	DirDown     Direction = "DOWN"
	DirUp       Direction = "UP"
	DirBoth     Direction = "BOTH"
	DirSemantic Direction = "SEMANTIC"
)

type GotoCommand struct{ Target string }

type BackCommand struct{ Steps int }

type ExpandCommand struct {
	Block     string
	Direction Direction
	Depth     int
	HasDepth  bool
	Mode      string
	Roles     []string
	Tags      []string
}

type FollowCommand struct {
	Block, EdgeType, Target string
	HasTarget               bool
}

type PathCommand struct {
	From, To string
	Max      int
	HasMax   bool
}

type SearchCommand struct {
	Query         string
	Limit         int
	HasLimit      bool
	MinSimilarity float64
	HasMinSim     bool
}

type FindCommand struct {
	Role, Tag, Label, Pattern string
	Tags                      []string
}

type ViewTarget int

const (
	ViewBlock ViewTarget = iota
	ViewNeighborhood
)

type ViewCommand struct {
	Target     ViewTarget
	Block      string
	Mode       string
	Depth      int
	HasDepth   bool
}

// --- Context commands (§4.6.3, §4.6.6) ---

type CtxAction string

const (
	CtxAdd         CtxAction = "ADD"
	CtxRemove      CtxAction = "REMOVE"
	CtxClear       CtxAction = "CLEAR"
	CtxFocus       CtxAction = "FOCUS"
	CtxAddResults  CtxAction = "RESULTS"
	CtxRender      CtxAction = "RENDER"
	CtxStats       CtxAction = "STATS"
	CtxCompress    CtxAction = "COMPRESS"
	CtxPrune       CtxAction = "PRUNE"
)

type CtxCommand struct {
	Action    CtxAction
	Block     string
	HasBlock  bool
	Reason    string
	Relevance float64
	HasRel    bool
}

func (EditCommand) commandNode()       {}
func (AppendCommand) commandNode()     {}
func (MoveCommand) commandNode()       {}
func (DeleteCommand) commandNode()     {}
func (LinkCommand) commandNode()       {}
func (UnlinkCommand) commandNode()     {}
func (PruneCommand) commandNode()      {}
func (SnapshotCommand) commandNode()   {}
func (TransactionCommand) commandNode(){}
func (AtomicCommand) commandNode()     {}
func (GotoCommand) commandNode()       {}
func (BackCommand) commandNode()       {}
func (ExpandCommand) commandNode()     {}
func (FollowCommand) commandNode()     {}
func (PathCommand) commandNode()       {}
func (SearchCommand) commandNode()     {}
func (FindCommand) commandNode()       {}
func (ViewCommand) commandNode()       {}
func (CtxCommand) commandNode()        {}

// --- Conditions (§4.4 "Conditions") ---

type Condition interface{ conditionNode() }

type Comparison struct {
	Field string
	Op    string // = != > >= < <=
	Value any
}

type ContainsCondition struct {
	Field string
	Value any
}

type MatchesCondition struct {
	Field   string
	Pattern string
}

type AndCondition struct{ Left, Right Condition }
type OrCondition struct{ Left, Right Condition }
type NotCondition struct{ Inner Condition }

func (Comparison) conditionNode()        {}
func (ContainsCondition) conditionNode() {}
func (MatchesCondition) conditionNode()  {}
func (AndCondition) conditionNode()      {}
func (OrCondition) conditionNode()       {}
func (NotCondition) conditionNode()      {}
