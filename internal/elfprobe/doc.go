// Package elfprobe inspects ELF binaries before a traced process is allowed
// to run them.
//
// It answers two questions for the sandbox: whether a binary is native to
// the host (otherwise an emulator has to be interposed), and which extra
// shared library search paths (DT_RPATH and DT_RUNPATH) the binary declares,
// so that dynamic loader lookups can be translated correctly. For x86 binaries
// it can also decode the first instruction at the entry point.
//
// # Usage
//
//	fsys := safefileio.NewFileSystem()
//	f, header, err := elfprobe.Open(fsys, "/usr/bin/curl")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	ctx := elfprobe.NewContext(elfprobe.ContextConfig{})
//	defer ctx.Close()
//
//	rpaths, runpaths, err := elfprobe.ReadRPaths(ctx, f, header)
//
// # Limitations
//
// - Program header tables using extended numbering (e_phnum == PN_XNUM) are
// rejected with ErrUnsupportedFeature.
// - Path lists are returned exactly as declared; $ORIGIN and friends are not
// expanded.
// - Without a byte budget on the Context, reading a string that has no NUL
// terminator grows until the end of the file.
package elfprobe
