package tlb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tlbsim/mem/vm"
)

var _ = Describe("L2", func() {
	var (
		mockCtrl *gomock.Controller
		walker   *MockPageWalker
		config   Config
		l2       *L2
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		walker = NewMockPageWalker(mockCtrl)
		config = smallConfig()
		config.PortCount = 2
	})

	JustBeforeEach(func() {
		l2 = MakeBuilder().
			WithL2Config(config).
			WithPageWalker(walker).
			buildL2("L2TLB")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	page := func(vAddr, pAddr uint64) vm.Page {
		return vm.Page{VAddr: vAddr, PAddr: pAddr, PageSize: 4096, Valid: true}
	}

	It("should wait for the latency before the lookup", func() {
		l2.Admit(newReq(0x1000, 0), 10)

		_, accessed := l2.ProcessAccess(11)
		Expect(accessed).To(BeFalse())

		status, accessed := l2.ProcessAccess(12)
		Expect(accessed).To(BeTrue())
		Expect(status).To(Equal(Miss))
		Expect(l2.delayQueue).To(BeEmpty())
	})

	It("should limit the admissions per cycle", func() {
		l2.Admit(newReq(0x1000, 0), 0)
		l2.Admit(newReq(0x2000, 0), 0)

		Expect(l2.CanServe()).To(BeFalse())
		Expect(func() { l2.Admit(newReq(0x3000, 0), 0) }).To(Panic())

		l2.Cycle(0)
		Expect(l2.CanServe()).To(BeTrue())
	})

	It("should send a miss to the page walker", func() {
		req := newReq(0x1000, 0)
		l2.Admit(req, 0)
		l2.ProcessAccess(2)

		walker.EXPECT().Walk(uint64(2), req)

		Expect(l2.Cycle(2)).To(BeTrue())
		Expect(l2.Cycle(3)).To(BeFalse())
	})

	It("should send a walked translation back to the core", func() {
		req := newReq(0x1234, 3)
		l2.Admit(req, 0)
		l2.ProcessAccess(2)
		walker.EXPECT().Walk(uint64(2), req)
		l2.Cycle(2)

		walker.EXPECT().PopCompleted(uint64(3)).Return(page(0x1000, 0x9000), true)
		Expect(l2.FillFromPageWalk(3)).To(BeTrue())
		Expect(l2.Writeback(3)).To(BeTrue())

		Expect(l2.HasResponse(3)).To(BeTrue())
		Expect(l2.HasResponse(0)).To(BeFalse())

		rsp, ok := l2.PopResponse(3)
		Expect(ok).To(BeTrue())
		Expect(rsp.Req).To(BeIdenticalTo(req))
		Expect(rsp.Frame).To(Equal(uint64(0x9000)))
		Expect(req.GetPAddr()).To(Equal(uint64(0x9234)))
		Expect(l2.HasResponse(3)).To(BeFalse())

		s, _ := l2.Probe(0x1000)
		Expect(s).To(Equal(Hit))
		Expect(l2.IsIdle()).To(BeTrue())
	})

	It("should take at most one page walk per cycle", func() {
		l2.Admit(newReq(0x1000, 0), 0)
		l2.Admit(newReq(0x2000, 0), 0)
		l2.ProcessAccess(2)
		l2.ProcessAccess(2)

		walker.EXPECT().PopCompleted(uint64(3)).Return(page(0x1000, 0x9000), true)

		Expect(l2.FillFromPageWalk(3)).To(BeTrue())
		Expect(l2.FillFromPageWalk(3)).To(BeFalse())
	})

	It("should not fill when the walker has nothing", func() {
		walker.EXPECT().PopCompleted(uint64(3)).Return(vm.Page{}, false)

		Expect(l2.FillFromPageWalk(3)).To(BeFalse())
	})

	It("should answer merged requests of different cores", func() {
		req0 := newReq(0x1000, 0)
		req1 := newReq(0x1008, 1)
		l2.Admit(req0, 0)
		l2.Admit(req1, 0)

		status, _ := l2.ProcessAccess(2)
		Expect(status).To(Equal(Miss))
		status, _ = l2.ProcessAccess(2)
		Expect(status).To(Equal(HitReserved))

		walker.EXPECT().Walk(uint64(2), req0)
		l2.Cycle(2)

		walker.EXPECT().PopCompleted(uint64(3)).Return(page(0x1000, 0x9000), true)
		l2.FillFromPageWalk(3)

		Expect(l2.Writeback(3)).To(BeTrue())
		Expect(l2.Writeback(4)).To(BeTrue())
		Expect(l2.Writeback(5)).To(BeFalse())

		rsp0, _ := l2.PopResponse(0)
		rsp1, _ := l2.PopResponse(1)
		Expect(rsp0.Req).To(BeIdenticalTo(req0))
		Expect(rsp1.Req).To(BeIdenticalTo(req1))
		Expect(req1.GetPAddr()).To(Equal(uint64(0x9008)))

		_, index := l2.Probe(0x1000)
		Expect(l2.store.Entry(index).FillTime).To(Equal(uint64(3)))
	})

	It("should answer a hit without the walker", func() {
		_, index := l2.Access(newReq(0x1000, 0), 0)
		l2.Fill(index, 0x1000, 0x9000, 0)

		req := newReq(0x1040, 2)
		l2.Admit(req, 0)
		status, _ := l2.ProcessAccess(2)

		Expect(status).To(Equal(Hit))
		rsp, _ := l2.PopResponse(2)
		Expect(rsp.Frame).To(Equal(uint64(0x9000)))
		Expect(req.GetPAddr()).To(Equal(uint64(0x9040)))
	})

	It("should keep responses of one core in order", func() {
		for i := uint64(0); i < 2; i++ {
			_, index := l2.Access(newReq(i*0x1000, 0), 0)
			l2.Fill(index, i*0x1000, 0x8000+i*0x1000, 0)
		}

		reqA := newReq(0x1000, 0)
		reqB := newReq(0x0000, 0)
		l2.Admit(reqA, 0)
		l2.Admit(reqB, 0)
		l2.ProcessAccess(2)
		l2.ProcessAccess(2)

		Expect(l2.NumPendingResponses(0)).To(Equal(2))
		rsp, _ := l2.PopResponse(0)
		Expect(rsp.Req).To(BeIdenticalTo(reqA))
		rsp, _ = l2.PopResponse(0)
		Expect(rsp.Req).To(BeIdenticalTo(reqB))
		_, ok := l2.PopResponse(0)
		Expect(ok).To(BeFalse())
	})

	Context("when the miss queue holds one request", func() {
		BeforeEach(func() {
			config.MissQueueSize = 1
		})

		It("should keep a rejected request at the head for a retry", func() {
			reqA := newReq(0x1000, 0)
			reqB := newReq(0x2000, 0)
			l2.Admit(reqA, 0)
			l2.Admit(reqB, 0)

			status, _ := l2.ProcessAccess(2)
			Expect(status).To(Equal(Miss))

			status, accessed := l2.ProcessAccess(2)
			Expect(accessed).To(BeTrue())
			Expect(status).To(Equal(ReservationFail))
			Expect(l2.delayQueue).To(HaveLen(1))

			s, _ := l2.Probe(0x2000)
			Expect(s).To(Equal(Miss))

			walker.EXPECT().Walk(uint64(2), reqA)
			l2.Cycle(2)

			status, _ = l2.ProcessAccess(3)
			Expect(status).To(Equal(Miss))
			Expect(l2.delayQueue).To(BeEmpty())
		})
	})
})
