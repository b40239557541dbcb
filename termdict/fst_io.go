package termdict

import "github.com/goedderz/iresearch/store"

// WriteFST serializes f as a preorder walk: per node, arc count, then per
// arc (label, final flag + output if final, recursively the child node).
func WriteFST(out store.IndexOutput, f *FST) error {
	if err := writeFinal(out, f.root); err != nil {
		return err
	}
	return writeNode(out, f.root)
}

func writeNode(out store.IndexOutput, n *fstNode) error {
	if err := out.WriteVarint(uint64(len(n.arcs))); err != nil {
		return err
	}
	for _, arc := range n.arcs {
		if err := out.WriteByte(arc.label); err != nil {
			return err
		}
		if err := writeFinal(out, arc.node); err != nil {
			return err
		}
		if err := writeNode(out, arc.node); err != nil {
			return err
		}
	}
	return nil
}

func writeFinal(out store.IndexOutput, n *fstNode) error {
	if !n.final {
		return out.WriteByte(0)
	}
	if err := out.WriteByte(1); err != nil {
		return err
	}
	return out.WriteZigzag(n.out)
}

// ReadFST deserializes an FST previously written by WriteFST.
func ReadFST(in store.IndexInput) (*FST, error) {
	final, out, err := readFinal(in)
	if err != nil {
		return nil, err
	}
	root, err := readNode(in)
	if err != nil {
		return nil, err
	}
	root.final = final
	root.out = out
	return &FST{root: root}, nil
}

func readNode(in store.IndexInput) (*fstNode, error) {
	count, err := in.ReadVarint()
	if err != nil {
		return nil, err
	}
	n := &fstNode{}
	if count > 0 {
		n.arcs = make([]fstArc, count)
	}
	for i := range n.arcs {
		label, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		final, out, err := readFinal(in)
		if err != nil {
			return nil, err
		}
		child, err := readNode(in)
		if err != nil {
			return nil, err
		}
		child.final = final
		child.out = out
		n.arcs[i] = fstArc{label: label, node: child}
	}
	return n, nil
}

func readFinal(in store.IndexInput) (bool, int64, error) {
	flag, err := in.ReadByte()
	if err != nil {
		return false, 0, err
	}
	if flag == 0 {
		return false, 0, nil
	}
	out, err := in.ReadZigzag()
	if err != nil {
		return false, 0, err
	}
	return true, out, nil
}
