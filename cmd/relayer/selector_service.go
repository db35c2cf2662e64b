package main

import "github.com/blockrelay/relayer/internal/selector"

// selectorService adapts *selector.Selector's Start()/Shutdown() shape to
// the registry's Service interface.
type selectorService struct {
	sel *selector.Selector
}

func (s selectorService) Start()      { s.sel.Start() }
func (s selectorService) Stop() error { s.sel.Shutdown(); return nil }
func (s selectorService) Status() error {
	return nil
}
