package metadata

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"golang.org/x/tools/go/ast/inspector"
)

// FromGoSource extracts the metadata of struct typeName (matched
// case-insensitively) from a single Go source file.
func FromGoSource(filename string, src []byte, typeName string) (*Info, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return FromGoFiles([]*ast.File{file}, typeName)
}

// methodFacts holds the direct edges found in one method body.
type methodFacts struct {
	decl       *ast.FuncDecl
	recv       string
	calls      map[string]bool
	assigns    map[string]bool
	assignsAll bool
	getterLike bool
}

// FromGoFiles extracts the metadata of struct typeName from the files of
// one package. Fields become properties; methods without parameters and
// with exactly one result that assign nothing become getters; all other
// methods are methods.
//
// Assignment edges over-approximate. They cover r.X = v, r.X op= v, r.X++,
// r.X[i] = v, r.X.Y = v and &r.X, any method call on a value reached
// through r.X, and any place a value of r.X that may share memory is
// copied: an assignment, a call argument, a composite literal element or a
// channel send. Passing or aliasing the receiver itself, or calling a
// method promoted from an embedded field, marks every property assignable.
func FromGoFiles(files []*ast.File, typeName string) (*Info, error) {
	in := inspector.New(files)

	var structName string
	var fields []string
	fieldTypes := make(map[string]ast.Expr)
	in.Preorder([]ast.Node{(*ast.TypeSpec)(nil)}, func(n ast.Node) {
		spec := n.(*ast.TypeSpec)
		st, ok := spec.Type.(*ast.StructType)
		if !ok || structName != "" || !strings.EqualFold(spec.Name.Name, typeName) {
			return
		}
		structName = spec.Name.Name
		for _, field := range st.Fields.List {
			for _, name := range field.Names {
				if name.Name == "_" {
					continue
				}
				fields = append(fields, name.Name)
				fieldTypes[name.Name] = field.Type
			}
		}
	})
	if structName == "" {
		return nil, fmt.Errorf("struct %q not found", typeName)
	}

	facts := make(map[string]*methodFacts)
	var order []string
	in.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		decl := n.(*ast.FuncDecl)
		recvType, recvName := receiverOf(decl)
		if recvType != structName {
			return
		}
		if _, dup := facts[decl.Name.Name]; dup {
			return
		}
		facts[decl.Name.Name] = &methodFacts{
			decl:       decl,
			recv:       recvName,
			calls:      make(map[string]bool),
			assigns:    make(map[string]bool),
			getterLike: decl.Type.Params.NumFields() == 0 && decl.Type.Results.NumFields() == 1,
		}
		order = append(order, decl.Name.Name)
	})

	for _, name := range order {
		f := facts[name]
		if f.recv == "" || f.recv == "_" || f.decl.Body == nil {
			continue
		}
		collectEdges(f, facts, fieldTypes)
	}

	methods := make(map[string]Method, len(facts))
	for name, f := range facts {
		m := Method{}
		for callee := range f.calls {
			m.Calls = append(m.Calls, callee)
		}
		if f.assignsAll {
			m.Assigns = append(m.Assigns, fields...)
		} else {
			for p := range f.assigns {
				m.Assigns = append(m.Assigns, p)
			}
		}
		methods[name] = m
	}

	// First pass decides which getter-shaped methods really assign nothing.
	all, err := New(structName, fields, nil, methods)
	if err != nil {
		return nil, err
	}
	var getters []string
	for _, name := range order {
		if facts[name].getterLike && len(all.Mutates(name)) == 0 {
			getters = append(getters, name)
			delete(methods, name)
		}
	}
	if len(getters) == 0 {
		return all, nil
	}
	return New(structName, fields, getters, methods)
}

func collectEdges(f *methodFacts, facts map[string]*methodFacts, fieldTypes map[string]ast.Expr) {
	markLHS := func(expr ast.Expr) {
		field, ok := fieldOf(expr, f.recv)
		if !ok {
			return
		}
		if field == "" {
			f.assignsAll = true
			return
		}
		f.assigns[field] = true
	}
	// markCopy handles a value read from the receiver and stored or passed
	// somewhere it can be written through.
	markCopy := func(expr ast.Expr) {
		if isIdent(expr, f.recv) {
			f.assignsAll = true
			return
		}
		if field, ok := aliasedField(expr, f.recv, fieldTypes); ok && facts[field] == nil {
			f.assigns[field] = true
		}
	}

	ast.Inspect(f.decl.Body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.AssignStmt:
			if node.Tok != token.DEFINE {
				for _, lhs := range node.Lhs {
					markLHS(lhs)
				}
			}
			for _, rhs := range node.Rhs {
				markCopy(rhs)
			}
		case *ast.ValueSpec:
			for _, value := range node.Values {
				markCopy(value)
			}
		case *ast.IncDecStmt:
			markLHS(node.X)
		case *ast.RangeStmt:
			if node.Tok == token.ASSIGN {
				if node.Key != nil {
					markLHS(node.Key)
				}
				if node.Value != nil {
					markLHS(node.Value)
				}
			}
			if node.Value != nil {
				if field, ok := fieldOf(node.X, f.recv); ok && field != "" && elementMayAlias(fieldTypes[field]) {
					f.assigns[field] = true
				}
			}
		case *ast.UnaryExpr:
			if node.Op == token.AND {
				markLHS(node.X)
			}
		case *ast.SendStmt:
			markCopy(node.Value)
		case *ast.CompositeLit:
			for _, elt := range node.Elts {
				if kv, ok := elt.(*ast.KeyValueExpr); ok {
					elt = kv.Value
				}
				markCopy(elt)
			}
		case *ast.CallExpr:
			if !isPureBuiltin(node.Fun) {
				for _, arg := range node.Args {
					markCopy(arg)
				}
			}
			sel, ok := node.Fun.(*ast.SelectorExpr)
			if !ok {
				break
			}
			if isIdent(sel.X, f.recv) {
				if _, known := facts[sel.Sel.Name]; !known {
					if _, isField := fieldTypes[sel.Sel.Name]; !isField {
						// Promoted from an embedded field.
						f.assignsAll = true
					}
				}
				break
			}
			if field, ok := fieldOf(sel.X, f.recv); ok && field != "" && facts[field] == nil {
				f.assigns[field] = true
			}
		case *ast.SelectorExpr:
			// Covers both r.M() and method values r.M.
			if isIdent(node.X, f.recv) {
				if _, ok := facts[node.Sel.Name]; ok {
					f.calls[node.Sel.Name] = true
				}
			}
		}
		return true
	})
}

// aliasedField reports the receiver field whose memory expr may share.
// Plain reads of basic values, and indexing a field whose elements are
// basic, share nothing.
func aliasedField(expr ast.Expr, recv string, fieldTypes map[string]ast.Expr) (string, bool) {
	for {
		paren, ok := expr.(*ast.ParenExpr)
		if !ok {
			break
		}
		expr = paren.X
	}
	field, ok := fieldOf(expr, recv)
	if !ok || field == "" {
		return "", false
	}
	switch e := expr.(type) {
	case *ast.SelectorExpr:
		if isIdent(e.X, recv) {
			return field, !isBasicType(fieldTypes[field])
		}
	case *ast.IndexExpr:
		if sel, ok := e.X.(*ast.SelectorExpr); ok && isIdent(sel.X, recv) {
			return field, elementMayAlias(fieldTypes[field])
		}
	}
	return field, true
}

// fieldOf reports whether expr is rooted at the receiver and, if so, which
// receiver field it reaches first. An empty field means the receiver itself.
func fieldOf(expr ast.Expr, recv string) (string, bool) {
	for {
		switch e := expr.(type) {
		case *ast.SelectorExpr:
			if isIdent(e.X, recv) {
				return e.Sel.Name, true
			}
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.SliceExpr:
			expr = e.X
		case *ast.CallExpr:
			// r.X.Get() may return a pointer into r.X.
			if sel, ok := e.Fun.(*ast.SelectorExpr); ok {
				expr = sel.X
				continue
			}
			return "", false
		case *ast.Ident:
			return "", e.Name == recv
		default:
			return "", false
		}
	}
}

func isIdent(expr ast.Expr, name string) bool {
	id, ok := expr.(*ast.Ident)
	return ok && id.Name == name
}

// isPureBuiltin reports calls that read their arguments without retaining
// or mutating them.
func isPureBuiltin(fun ast.Expr) bool {
	id, ok := fun.(*ast.Ident)
	if !ok {
		return false
	}
	switch id.Name {
	case "len", "cap":
		return true
	}
	return false
}

var basicTypes = map[string]bool{
	"bool": true, "string": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

// isBasicType reports types whose copies share no memory.
func isBasicType(expr ast.Expr) bool {
	id, ok := expr.(*ast.Ident)
	return ok && basicTypes[id.Name]
}

// elementMayAlias reports whether an element of a value of type expr may
// share memory with it. Unknown types may.
func elementMayAlias(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.ArrayType:
		return !isBasicType(t.Elt)
	case *ast.MapType:
		return !isBasicType(t.Value)
	case *ast.Ident:
		return t.Name != "string"
	}
	return true
}

func receiverOf(decl *ast.FuncDecl) (typeName, recvName string) {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return "", ""
	}
	field := decl.Recv.List[0]
	if len(field.Names) > 0 {
		recvName = field.Names[0].Name
	}
	expr := field.Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
			continue
		case *ast.IndexExpr:
			expr = t.X
			continue
		case *ast.IndexListExpr:
			expr = t.X
			continue
		case *ast.Ident:
			return t.Name, recvName
		}
		return "", recvName
	}
}
