package runtime

// CopyValue returns a deep copy of arrays so that bindings never alias each
// other. Scalars and callables are immutable and returned as is.
func CopyValue(v Value) Value {
	arr, ok := v.(*ArrayValue)
	if !ok || arr == nil {
		return v
	}
	elements := make([]Value, len(arr.Elements))
	for i, el := range arr.Elements {
		elements[i] = CopyValue(el)
	}
	return &ArrayValue{Elements: elements, Shape: arr.Shape}
}

// ValuesEqual compares two values structurally.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case NumberValue:
		bv, ok := b.(NumberValue)
		return ok && av.Val == bv.Val
	case ComplexValue:
		bv, ok := b.(ComplexValue)
		return ok && av.Val == bv.Val
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Val == bv.Val
	case UnitValue:
		bv, ok := b.(UnitValue)
		return ok && av.Val == bv.Val && av.Unit.Equal(bv.Unit)
	case ErrorValue:
		bv, ok := b.(ErrorValue)
		return ok && av.Message == bv.Message
	case *ArrayValue:
		bv, ok := b.(*ArrayValue)
		if !ok || av.Shape != bv.Shape || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !ValuesEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *FunctionValue:
		bv, ok := b.(*FunctionValue)
		return ok && av.Declaration == bv.Declaration
	case *NativeFunctionValue:
		bv, ok := b.(*NativeFunctionValue)
		return ok && av == bv
	default:
		return false
	}
}
