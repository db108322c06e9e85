package agentconn

import "os"

func removeAllReal(path string) error {
	return os.RemoveAll(path)
}
