package tlb

import (
	"log"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim"
)

// LogHook prints the access, fill and response events of TLBs.
type LogHook struct {
	sim.LogHookBase
}

// NewLogHook returns a new LogHook that writes into the logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger

	return h
}

// Func writes the event into the logger.
func (h *LogHook) Func(ctx sim.HookCtx) {
	if !h.ShouldLog(ctx.Pos) {
		return
	}

	name := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		name = named.Name()
	}

	switch ctx.Pos {
	case HookPosAccess:
		req := ctx.Item.(*vm.TranslationReq)
		h.Printf("%d, %s, %s, %s, 0x%x",
			ctx.Now, name, ctx.Detail.(Status), req.ID, req.GetVAddr())
	case HookPosFill:
		page := ctx.Item.(vm.Page)
		h.Printf("%d, %s, fill, 0x%x -> 0x%x",
			ctx.Now, name, page.VAddr, page.PAddr)
	case HookPosRespond:
		req := ctx.Item.(*vm.TranslationReq)
		h.Printf("%d, %s, respond, %s, 0x%x -> 0x%x",
			ctx.Now, name, req.ID, req.GetVAddr(), req.GetPAddr())
	}
}
