package rootscan

// Root is one emitted live pointer location (spec.md §3, "Root"):
// Address is a location in the mutator's address space holding a live
// pointer whose static type is ctx.Type(Type). Type is BaseTypeId when
// the variable's pointer type was not tabled (it was not a direct child
// of a compilation unit); ctx.Type panics on that value. The caller,
// not this package, dereferences the address.
type Root struct {
	Address Word
	Type    TypeId
}
