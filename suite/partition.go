package suite

// Suites is the 1:1 partition of a chain into its deduplicable and per-user
// halves. Shared holds the parameters many accounts have in common and is
// stored once per distinct configuration; Intrinsic holds the secret bytes.
// Merge(Split(c)) == c for every chain Encrypt can produce.
type Suites struct {
	Shared    Chain
	Intrinsic Chain
}

// Split partitions a chain stage by stage: handler id and numeric parameters
// go to the shared half, all binary material (salt, password, prefix, suffix,
// infix) to the intrinsic half. Split is deterministic and idempotent.
func Split(c Chain) Suites {
	shared := make(Chain, len(c))
	intrinsic := make(Chain, len(c))
	for i, st := range c {
		sh := Stage{Handler: st.Handler}
		if st.Params != nil {
			sh.Params = make(map[string]int, len(st.Params))
			for k, v := range st.Params {
				sh.Params[k] = v
			}
		}
		shared[i] = sh

		intrinsic[i] = Stage{
			Handler:  st.Handler,
			Password: cloneBytes(st.Password),
			Salt:     cloneBytes(st.Salt),
			Prefix:   cloneBytes(st.Prefix),
			Suffix:   cloneBytes(st.Suffix),
			Infix:    cloneBytes(st.Infix),
		}
	}
	return Suites{Shared: shared, Intrinsic: intrinsic}
}

// Merge zips the two halves of a partition back into a chain. It returns nil
// when lengths or handler ids disagree, the consistency check against
// storage corruption.
func Merge(shared, intrinsic Chain) Chain {
	if len(shared) == 0 || len(shared) != len(intrinsic) {
		return nil
	}
	out := make(Chain, len(shared))
	for i := range shared {
		if shared[i].Handler != intrinsic[i].Handler {
			return nil
		}
		st := Stage{Handler: shared[i].Handler}
		if shared[i].Params != nil {
			st.Params = make(map[string]int, len(shared[i].Params))
			for k, v := range shared[i].Params {
				st.Params[k] = v
			}
		}
		st.Password = cloneBytes(intrinsic[i].Password)
		st.Salt = cloneBytes(intrinsic[i].Salt)
		st.Prefix = cloneBytes(intrinsic[i].Prefix)
		st.Suffix = cloneBytes(intrinsic[i].Suffix)
		st.Infix = cloneBytes(intrinsic[i].Infix)
		out[i] = st
	}
	return out
}
