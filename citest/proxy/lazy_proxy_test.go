package proxy_test

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	lazyrpc "github.com/telnet2/go-lazyrpc"
	"github.com/telnet2/go-lazyrpc/pkg/jsonrpc"
	"github.com/telnet2/go-lazyrpc/pkg/wsrpc"
)

var _ = Describe("LazyProvider over WebSocket", func() {
	var (
		server *rpcServer
		proxy  *lazyrpc.LazyProvider
		ctx    context.Context
	)

	BeforeEach(func() {
		server = startRPCServer()
		proxy = lazyrpc.New(wsrpc.Factory(server.url))
		ctx = context.Background()
	})

	AfterEach(func() {
		server.stop()
	})

	It("does not connect until the first call", func() {
		proxy.On("newHeads", func(args ...any) {})
		Expect(proxy.Initialized()).To(BeFalse())
		Expect(server.connections()).To(BeZero())

		result, err := proxy.Send(ctx, "eth_chainId")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(result)).To(Equal(`"0x1"`))
		Expect(proxy.Initialized()).To(BeTrue())
		Expect(server.connections()).To(Equal(int64(1)))
	})

	It("opens a single connection under concurrent first calls", func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := proxy.Send(ctx, "eth_blockNumber")
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		Expect(server.connections()).To(Equal(int64(1)))
	})

	It("delivers notifications to listeners registered before the dial", func() {
		heads := make(chan any, 1)
		proxy.On("newHeads", func(args ...any) { heads <- args[0] })

		_, err := proxy.Send(ctx, "test_notify")
		Expect(err).NotTo(HaveOccurred())
		Expect(proxy.ListenerCount("newHeads")).To(Equal(1))

		Eventually(heads).Should(Receive())
	})

	It("reports construction failure through the sendAsync callback", func() {
		server.stop()

		type outcome struct {
			err  error
			resp *jsonrpc.Response
		}
		done := make(chan outcome, 1)
		proxy.SendAsync(jsonrpc.NewRequest("eth_chainId"), func(err error, resp *jsonrpc.Response) {
			done <- outcome{err: err, resp: resp}
		})

		var got outcome
		Eventually(done, 5*time.Second).Should(Receive(&got))
		Expect(got.err).To(HaveOccurred())
		Expect(got.resp).To(BeNil())
		Expect(proxy.Initialized()).To(BeFalse())
	})

	It("recovers after a failed dial and keeps buffered listeners", func() {
		heads := make(chan any, 1)

		// Point the proxy at a dead endpoint first.
		dead := startRPCServer()
		dead.stop()
		var mu sync.Mutex
		url := dead.url
		proxy = lazyrpc.New(func(ctx context.Context) (jsonrpc.Provider, error) {
			mu.Lock()
			target := url
			mu.Unlock()
			return wsrpc.Dial(ctx, target)
		})

		proxy.On("newHeads", func(args ...any) { heads <- args[0] })

		_, err := proxy.Send(ctx, "eth_chainId")
		Expect(err).To(HaveOccurred())
		Expect(proxy.Initialized()).To(BeFalse())
		Expect(proxy.ListenerCount("newHeads")).To(Equal(1))

		// Endpoint comes back; the next call constructs and migrates.
		mu.Lock()
		url = server.url
		mu.Unlock()

		Expect(proxy.WarmBackOff(ctx, backoff.NewConstantBackOff(50*time.Millisecond))).To(Succeed())
		_, err = proxy.Send(ctx, "test_notify")
		Expect(err).NotTo(HaveOccurred())
		Eventually(heads).Should(Receive())
	})
})
