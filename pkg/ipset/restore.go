package ipset

// IPSet owns one initialized native library instance. Sessions are
// opened from it; Restore operates on the whole instance rather than a
// single set.
type IPSet struct {
	lib Lib
}

// New wraps an initialized native library instance.
func New(lib Lib) *IPSet {
	return &IPSet{lib: lib}
}

// Restore loads a previously saved definition file back into the native
// library's working state. The input stream is released on every path.
func (s *IPSet) Restore(filename string) error {
	h, err := s.lib.NewHandle()
	if err != nil {
		return wrapError(ErrSaveRestore, "open session", err)
	}
	defer h.Close()

	if !h.OpenStream(filename, IOInput) {
		msg, _ := h.Report()
		return newError(ErrSaveRestore, msg, true)
	}
	defer h.CloseStream(IOInput)

	if err := s.lib.ParseStream(h); err != nil {
		return wrapError(ErrSaveRestore, err.Error(), err)
	}
	return nil
}

// Close releases the native library instance.
func (s *IPSet) Close() error {
	return s.lib.Close()
}
