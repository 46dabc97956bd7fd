package ffgraph

// OpCode identifies a built-in operation vertex kind. External operations all
// share OpExtern and are distinguished by their registered name.
type OpCode uint8

const (
	OpAdd OpCode = iota
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpExp
	OpLog
	OpSqrt
	OpSqr
	OpPow
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpSinh
	OpCosh
	OpTanh
	OpErf
	OpErfc
	OpFabs
	OpMin
	OpMax
	OpRelu
	OpCheb
	OpExtern
)

var opNames = [...]string{
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpNeg: "NEG",
	OpExp: "EXP", OpLog: "LOG", OpSqrt: "SQRT", OpSqr: "SQR", OpPow: "POW",
	OpSin: "SIN", OpCos: "COS", OpTan: "TAN",
	OpAsin: "ASIN", OpAcos: "ACOS", OpAtan: "ATAN",
	OpSinh: "SINH", OpCosh: "COSH", OpTanh: "TANH",
	OpErf: "ERF", OpErfc: "ERFC",
	OpFabs: "FABS", OpMin: "MIN", OpMax: "MAX", OpRelu: "RELU",
	OpCheb: "CHEB", OpExtern: "EXTERN",
}

func (c OpCode) String() string {
	if int(c) < len(opNames) {
		return opNames[c]
	}
	return "UNKNOWN"
}

// commutative reports whether operand order is insignificant for structural
// deduplication.
func (c OpCode) commutative() bool {
	switch c {
	case OpAdd, OpMul, OpMin, OpMax:
		return true
	}
	return false
}
