package translationagent

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/pagewalk"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"github.com/sarchlab/tlbsim/sim"
)

var _ = Describe("Agent", func() {
	var (
		mockCtrl  *gomock.Controller
		requester *MockRequester
		pageTable vm.PageTable
		agent     *Agent
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		requester = NewMockRequester(mockCtrl)
		pageTable = vm.NewPageTable(12)
		pageTable.Insert(vm.Page{VAddr: 0x10000, PAddr: 0x80000, PageSize: 4096, Valid: true})

		agent = MakeBuilder().
			WithTLB(requester).
			WithPageTable(pageTable).
			WithNumRequests(2).
			WithAddressSpace(0x10000, 4096, 1).
			Build("Agent")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should not issue when the TLB is busy", func() {
		requester.EXPECT().PopResponse().Return(nil, false)
		requester.EXPECT().CanAccept().Return(false)

		Expect(agent.Tick(0)).To(BeFalse())
	})

	It("should retry a rejected request", func() {
		var first *vm.TranslationReq

		requester.EXPECT().PopResponse().Return(nil, false).Times(2)
		requester.EXPECT().CanAccept().Return(true).Times(2)
		requester.EXPECT().ProcessAccess(gomock.Any(), uint64(0)).
			DoAndReturn(func(req *vm.TranslationReq, _ uint64) tlb.Status {
				first = req
				return tlb.ReservationFail
			})
		requester.EXPECT().ProcessAccess(gomock.Any(), uint64(1)).
			DoAndReturn(func(req *vm.TranslationReq, _ uint64) tlb.Status {
				Expect(req).To(BeIdenticalTo(first))
				return tlb.Miss
			})

		Expect(agent.Tick(0)).To(BeFalse())
		Expect(agent.Tick(1)).To(BeTrue())
		Expect(agent.NumRetries()).To(Equal(uint64(1)))
		Expect(agent.Done()).To(BeFalse())
	})

	It("should check the answers against the page table", func() {
		var issued []*vm.TranslationReq

		requester.EXPECT().CanAccept().Return(true).AnyTimes()
		requester.EXPECT().ProcessAccess(gomock.Any(), gomock.Any()).
			DoAndReturn(func(req *vm.TranslationReq, _ uint64) tlb.Status {
				issued = append(issued, req)
				return tlb.Miss
			}).Times(2)

		requester.EXPECT().PopResponse().Return(nil, false).Times(2)
		agent.Tick(0)
		agent.Tick(1)

		issued[0].SetPAddr(0x80000 + issued[0].GetVAddr() - 0x10000)
		issued[1].SetPAddr(0)

		gomock.InOrder(
			requester.EXPECT().PopResponse().Return(issued[0], true),
			requester.EXPECT().PopResponse().Return(issued[1], true),
			requester.EXPECT().PopResponse().Return(nil, false),
		)

		Expect(agent.Tick(2)).To(BeTrue())
		Expect(agent.NumCompleted()).To(Equal(uint64(2)))
		Expect(agent.NumWrongTranslations()).To(Equal(uint64(1)))
		Expect(agent.Done()).To(BeTrue())
	})

	It("should panic on responses it never asked for", func() {
		requester.EXPECT().PopResponse().
			Return(vm.TranslationReqBuilder{}.Build(), true)

		Expect(func() { agent.Tick(0) }).To(Panic())
	})
})

var _ = Describe("Agent with a TLB hierarchy", func() {
	It("should get every translation right", func() {
		walker := pagewalk.MakeBuilder().
			WithLatency(20).
			WithAutoPageAllocation(true).
			Build("Walker")

		l1Config := tlb.DefaultL1Config()
		l1Config.NumSets = 2
		l1Config.NumWays = 2

		h := tlb.MakeBuilder().
			WithNumCores(2).
			WithL1Config(l1Config).
			WithPageWalker(walker).
			Build("TLBHierarchy")

		engine := sim.NewCycleEngine(1 * sim.GHz).WithMaxCycles(100000)

		var agents []*Agent
		for i := 0; i < h.NumCores(); i++ {
			agent := MakeBuilder().
				WithCoreID(uint64(i)).
				WithTLB(h.L1(i)).
				WithPageTable(walker.PageTable()).
				WithNumRequests(300).
				WithAddressSpace(0x100000000, 4096, 32).
				Build(sim.MakeIndexedName("Agent", i))
			agents = append(agents, agent)
			engine.RegisterTicker(agent)
		}

		engine.RegisterTicker(h)

		err := engine.Run(func() bool {
			for _, a := range agents {
				if !a.Done() {
					return false
				}
			}

			return h.IsIdle()
		})

		Expect(err).NotTo(HaveOccurred())

		for _, a := range agents {
			Expect(a.NumCompleted()).To(Equal(uint64(300)))
			Expect(a.NumWrongTranslations()).To(Equal(uint64(0)))
		}

		stats := h.L1Stats()
		Expect(stats.Misses).To(BeNumerically(">", 0))
		Expect(walker.NumWalks()).To(BeNumerically("<=", stats.Misses))
		Expect(walker.PageTable().NumPages()).To(BeNumerically("<=", 32))
	})
})
