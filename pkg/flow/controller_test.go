package flow

import (
	"testing"

	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(opts ...Option) *Controller {
	return New(classify.MustNew(), profile.MustNew(), opts...)
}

func TestStart_ClassifiesAndKeepsRawCode(t *testing.T) {
	h := newController().Start(" estp ")
	assert.Equal(t, domain.StageQuiz, h.From)
	assert.Equal(t, domain.StageRitual, h.To)
	assert.Equal(t, domain.Params{Code: " estp ", Archetype: domain.Enhancer}, h.Params)
}

func TestAdvance_ThreadsParamsUnchanged(t *testing.T) {
	c := newController()
	p := domain.Params{Code: "INTJ", Archetype: domain.Specialist}

	stage := domain.StageQuiz
	for _, want := range []domain.Stage{domain.StageRitual, domain.StageDivination, domain.StageReveal} {
		h, err := c.Advance(stage, p.Code, p.Archetype)
		require.NoError(t, err)
		assert.Equal(t, want, h.To)
		assert.Equal(t, p, h.Params)
		stage = h.To
	}

	_, err := c.Advance(domain.StageReveal, p.Code, p.Archetype)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdvance_MissingArchetype(t *testing.T) {
	c := newController()
	_, err := c.Advance(domain.StageRitual, "INTJ", "")
	assert.ErrorIs(t, err, domain.ErrMissingArchetype)

	_, err = c.Advance(domain.StageRitual, "INTJ", "Healer")
	assert.ErrorIs(t, err, domain.ErrMissingArchetype)
}

func TestReveal(t *testing.T) {
	c := newController()
	v, err := c.Reveal(domain.Params{Code: "ENFP", Archetype: domain.Enhancer})
	require.NoError(t, err)

	assert.Equal(t, "Hunter", v.DisplayName)
	assert.Equal(t, "ENFP", v.Code)
	assert.Equal(t, "The water overflows from the glass", v.DivinationOutcome)
	assert.Equal(t, domain.Enhancer, v.Profile.Archetype)
	assert.Equal(t, "I discovered my Nen type! I'm a Enhancer type. Find out yours!", v.ShareText)

	named := newController(WithIdentity(identity.NewStatic("Gon")))
	v, err = named.Reveal(domain.Params{Code: "ENFP", Archetype: domain.Enhancer})
	require.NoError(t, err)
	assert.Equal(t, "Gon", v.DisplayName)

	_, err = c.Reveal(domain.Params{Code: "ENFP"})
	assert.ErrorIs(t, err, domain.ErrMissingArchetype)
}

func TestQueryRoundTrip(t *testing.T) {
	p := domain.Params{Code: "isfj", Archetype: domain.Conjurer}
	got, err := ParamsFromQuery(Query(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = ParamsFromQuery(Query(domain.Params{Code: "isfj"}))
	assert.ErrorIs(t, err, domain.ErrMissingArchetype)

	v := Query(p)
	v.Set(ParamArchetype, "healer")
	_, err = ParamsFromQuery(v)
	assert.ErrorIs(t, err, domain.ErrUnknownArchetype)
}
