package services_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
)

var _ = Describe("CloneSweeper", func() {
	nameAt := func(t time.Time) string {
		return fmt.Sprintf("clone_%d_abcd1234", t.UnixMilli())
	}

	It("parses the creation time out of generated clone names", func() {
		now := time.UnixMilli(time.Now().UnixMilli())
		created, ok := services.CloneCreatedAt(nameAt(now))
		Expect(ok).To(BeTrue())
		Expect(created).To(BeTemporally("==", now))

		_, ok = services.CloneCreatedAt(services.NewCloneName())
		Expect(ok).To(BeTrue())

		_, ok = services.CloneCreatedAt("my favourite voice")
		Expect(ok).To(BeFalse())
		_, ok = services.CloneCreatedAt("clone_notanumber")
		Expect(ok).To(BeFalse())
	})

	It("deletes only clones of ours older than the max age", func() {
		provider := newFakeProvider(
			voice.ClonedVoice{ID: "old", Name: nameAt(time.Now().Add(-3 * time.Hour))},
			voice.ClonedVoice{ID: "fresh", Name: nameAt(time.Now().Add(-time.Minute))},
			voice.ClonedVoice{ID: "foreign", Name: "studio narrator"},
		)

		n, err := services.NewCloneSweeper(provider, services.NewProcessSlotGuard(), time.Hour).Sweep(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(1))
		ids := []string{}
		for _, v := range provider.Voices() {
			ids = append(ids, v.ID)
		}
		Expect(ids).To(ConsistOf("fresh", "foreign"))
	})

	It("keeps going when a delete fails", func() {
		provider := newFakeProvider(
			voice.ClonedVoice{ID: "a", Name: nameAt(time.Now().Add(-2 * time.Hour))},
			voice.ClonedVoice{ID: "b", Name: nameAt(time.Now().Add(-2 * time.Hour))},
		)
		provider.deleteErr = errors.New("nope")

		n, err := services.NewCloneSweeper(provider, nil, time.Hour).Sweep(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(provider.Calls()).To(Equal([]string{"list", "delete:a", "delete:b"}))
	})

	It("rejects invalid schedules", func() {
		sw := services.NewCloneSweeper(newFakeProvider(), nil, time.Hour)
		Expect(sw.Start("not a schedule")).ToNot(Succeed())
		sw.Stop()
	})

	It("runs on its schedule", func() {
		provider := newFakeProvider()
		sw := services.NewCloneSweeper(provider, nil, time.Hour)
		Expect(sw.Start("@every 1s")).To(Succeed())
		defer sw.Stop()

		Eventually(provider.Calls, "3s", "100ms").Should(ContainElement("list"))
	})
})
