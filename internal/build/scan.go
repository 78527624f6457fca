package build

import (
	"fmt"

	"github.com/mattjoyce/accrete/internal/vfs"
)

// srcTmpPair pairs a source file with its mirror location under the tmp tree.
type srcTmpPair struct {
	srcFile     vfs.File
	tmpLocation vfs.File
}

// scanForActions walks the tree under src, offering every regular file to
// every registered factory and queueing the actions they produce. The walk is
// a LIFO worklist, so deeper files surface sooner.
func (drv *Driver) scanForActions(src, tmp vfs.File) error {
	worklist := []srcTmpPair{{srcFile: src.Clone(), tmpLocation: tmp.Clone()}}

	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if current.srcFile.IsDirectory() {
			if !current.tmpLocation.IsDirectory() {
				if err := current.tmpLocation.CreateDirectory(); err != nil {
					return fmt.Errorf("mirror directory %s: %w", current.srcFile.DisplayName(), err)
				}
			}

			children, err := current.srcFile.List()
			if err != nil {
				return fmt.Errorf("scan %s: %w", current.srcFile.DisplayName(), err)
			}
			for _, child := range children {
				mirror, err := current.tmpLocation.Relative(child.Basename())
				if err != nil {
					return fmt.Errorf("scan %s: %w", current.srcFile.DisplayName(), err)
				}
				worklist = append(worklist, srcTmpPair{srcFile: child, tmpLocation: mirror})
			}
			continue
		}

		for _, nf := range drv.factories {
			if action := nf.factory.TryMakeAction(current.srcFile); action != nil {
				drv.queueNewAction(action, current.srcFile, current.tmpLocation)
			}
		}
	}
	return nil
}
