package storage

import (
	"os"
	"sync"
)

// ReleasingFile is a file inside a workspace whose Close also releases the
// workspace. It is handed to the HTTP layer as a response body stream so the
// scratch space lives exactly as long as the body is being written.
type ReleasingFile struct {
	*os.File
	ws   Workspace
	once sync.Once
	err  error
}

// OpenDownload opens path inside ws for streaming and returns it with its size.
// On failure the workspace is left untouched and still owned by the caller.
func OpenDownload(ws Workspace, path string) (*ReleasingFile, int64, error) {
	f, err := ws.Open(path)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return &ReleasingFile{File: f, ws: ws}, st.Size(), nil
}

// Close closes the file and then releases the workspace.
func (f *ReleasingFile) Close() error {
	f.once.Do(func() {
		f.err = f.File.Close()
		if rerr := f.ws.Release(); f.err == nil {
			f.err = rerr
		}
	})
	return f.err
}
