package vm

// ---------------------------------------------------------------------------
// Resolver: superclass-chain method lookup
// ---------------------------------------------------------------------------

// Resolve locates the method for msg, probing the global cache first
// and falling back to a walk of msg.LookupFrom and its superclass
// chain. On success msg.Method holds the unwrapped executable,
// msg.Module the defining module, and msg.Vis the wrapper's visibility;
// the result is retained in the global cache.
//
// A private method resolves only when the message asserts privacy.
func (st *VMState) Resolve(msg *Message) bool {
	if entry := st.Cache.Lookup(msg.LookupFrom, msg.Name); entry != nil {
		if entry.Vis == VisPrivate && !msg.Priv {
			return false
		}
		msg.Method = entry.Method
		msg.Module = entry.Module
		msg.Vis = entry.Vis
		return true
	}
	return st.resolveSlowly(msg)
}

// resolveSlowly walks the method tables directly, ignoring the cache on
// the way in but retaining on the way out.
func (st *VMState) resolveSlowly(msg *Message) bool {
	for mod := msg.LookupFrom; mod != nil; mod = mod.Superclass {
		stored, ok := mod.Method(msg.Name)
		if !ok {
			continue
		}
		method, vis := Unwrap(stored)
		st.Cache.Retain(msg.LookupFrom, msg.Name, mod, stored)
		if vis == VisPrivate && !msg.Priv {
			return false
		}
		msg.Method = method
		msg.Module = mod
		msg.Vis = vis
		return true
	}
	return false
}
