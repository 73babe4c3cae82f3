package sync

// OpType discriminates the operations a plan can contain.
type OpType string

const (
	// OpPush uploads a local path that doesn't exist remotely.
	OpPush OpType = "push"

	// OpDelete removes a remote path with no local counterpart.
	OpDelete OpType = "delete"

	// OpUpdate re-uploads a local file that's newer than its remote
	// counterpart.
	OpUpdate OpType = "update"

	// OpPull downloads a remote path into the local tree during a restore.
	OpPull OpType = "pull"
)

// Operation is a single planned transfer. Push and Update operations carry a
// local path; Delete and Pull operations carry a remote path along with the
// Kind captured when the remote tree was listed.
type Operation struct {
	Type OpType
	Path string
	Kind Kind
}
