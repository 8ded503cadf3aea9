package tui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"

	"github.com/chojs23/threeway/internal/engine"
)

// watchInputs reports writes to the input files as inputsChangedMsg. The
// parent directories are watched so that editors replacing a file by rename
// are seen too.
func watchInputs(files engine.Files, send func(tea.Msg)) (*fsnotify.Watcher, error) {
	targets := make(map[string]struct{}, 3)
	dirs := make(map[string]struct{}, 3)
	for _, path := range []string{files.Base, files.Left, files.Right} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if _, hit := targets[filepath.Clean(ev.Name)]; !hit {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					send(inputsChangedMsg{path: ev.Name})
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				glog.Warningf("watch inputs: %v", err)
			}
		}
	}()
	return w, nil
}
