package behavior

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxA struct{ id int }
type ctxB struct{ id int }
type ctxU struct{ id int }

type pairBehavior struct {
	first, second *ctxA
}

type selfCreator struct {
	made *ctxB
}

func newPairFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactory(reflect.TypeFor[*pairBehavior](), func(a *Assembly) (any, error) {
		first, err := Dep[*ctxA](a, "a1")
		if err != nil {
			return nil, err
		}
		second, err := Dep[*ctxA](a, "a2")
		if err != nil {
			return nil, err
		}
		return &pairBehavior{first: first, second: second}, nil
	}, []Slot{Require[*ctxA]("a1"), Require[*ctxA]("a2")})
	require.NoError(t, err)
	return f
}

func newMixedFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactory(reflect.TypeFor[*pairBehavior](), func(a *Assembly) (any, error) {
		return &pairBehavior{}, nil
	}, []Slot{Require[*ctxA]("t"), Require[*ctxU]("u")})
	require.NoError(t, err)
	return f
}

func newSelfCreatorFactory(t *testing.T, provide bool) *Factory {
	t.Helper()
	f, err := NewFactory(reflect.TypeFor[*selfCreator](), func(a *Assembly) (any, error) {
		s := &selfCreator{made: &ctxB{}}
		if provide {
			if err := a.Provide("b", s.made); err != nil {
				return nil, err
			}
		}
		return s, nil
	}, []Slot{Create[*ctxB]("b")})
	require.NoError(t, err)
	return f
}

func TestFactory_RequiredDependencyTypesAreDistinct(t *testing.T) {
	f := newPairFactory(t)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*ctxA]()}, f.RequiredDependencyTypes())

	m := newMixedFactory(t)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*ctxA](), reflect.TypeFor[*ctxU]()}, m.RequiredDependencyTypes())
}

func TestFactory_DuplicateTypeSlots(t *testing.T) {
	f := newPairFactory(t)

	require.NoError(t, f.AddAvailableDependency(&ctxA{id: 1}))
	assert.False(t, f.CanInstantiate())
	assert.Equal(t, 0, f.NumberOfPendingInstantiations())

	require.NoError(t, f.AddAvailableDependency(&ctxA{id: 2}))
	assert.True(t, f.CanInstantiate())
	assert.Equal(t, 1, f.NumberOfPendingInstantiations())

	instances, err := f.Process()
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, 0, f.NumberOfPendingInstantiations())
	assert.False(t, f.CanInstantiate())

	inst := instances[0]
	b := inst.Behavior.(*pairBehavior)
	assert.Equal(t, 1, b.first.id, "first available is consumed first")
	assert.Equal(t, 2, b.second.id)
	assert.Equal(t, []string{"a1", "a2"}, inst.Slots())
	assert.Empty(t, inst.Created)
}

func TestFactory_PendingFormula(t *testing.T) {
	f := newPairFactory(t)
	for i := range 5 {
		require.NoError(t, f.AddAvailableDependency(&ctxA{id: i}))
	}
	assert.Equal(t, 2, f.NumberOfPendingInstantiations(), "5 instances over 2 slots")

	m := newMixedFactory(t)
	for i := range 3 {
		require.NoError(t, m.AddAvailableDependency(&ctxA{id: i}))
	}
	for i := range 5 {
		require.NoError(t, m.AddAvailableDependency(&ctxU{id: i}))
	}
	assert.Equal(t, 3, m.NumberOfPendingInstantiations(), "limited by the scarcer type")
}

func TestFactory_PendingIsMinOfCountsUnderAddRemove(t *testing.T) {
	m := newMixedFactory(t)
	var as []*ctxA
	var us []*ctxU

	check := func() {
		t.Helper()
		assert.Equal(t, min(len(as), len(us)), m.NumberOfPendingInstantiations())
	}

	for i := range 4 {
		a := &ctxA{id: i}
		as = append(as, a)
		require.NoError(t, m.AddAvailableDependency(a))
		check()
	}
	for i := range 3 {
		u := &ctxU{id: i}
		us = append(us, u)
		require.NoError(t, m.AddAvailableDependency(u))
		check()
	}

	assert.True(t, m.RemoveAvailableDependency(as[1]))
	as = append(as[:1], as[2:]...)
	check()

	assert.True(t, m.RemoveAvailableDependency(us[0]))
	us = us[1:]
	check()
	assert.True(t, m.RemoveAvailableDependency(us[0]))
	us = us[1:]
	check()
}

func TestFactory_AddIsIdempotentPerInstance(t *testing.T) {
	f := newPairFactory(t)
	a := &ctxA{id: 1}

	require.NoError(t, f.AddAvailableDependency(a))
	require.NoError(t, f.AddAvailableDependency(a))

	assert.Equal(t, 1, f.Available(reflect.TypeFor[*ctxA]()))
	assert.Equal(t, 0, f.NumberOfPendingInstantiations())
}

func TestFactory_AddIgnoresUnrequiredType(t *testing.T) {
	f := newPairFactory(t)
	require.NoError(t, f.AddAvailableDependency(&ctxB{}))
	assert.Equal(t, 0, f.Available(reflect.TypeFor[*ctxB]()))
}

func TestFactory_AddNilIsUsageError(t *testing.T) {
	f := newPairFactory(t)

	assert.ErrorIs(t, f.AddAvailableDependency(nil), ErrNilDependency)

	var typedNil *ctxA
	assert.ErrorIs(t, f.AddAvailableDependency(typedNil), ErrNilDependency)
}

func TestFactory_RemoveByIdentityNotType(t *testing.T) {
	f := newPairFactory(t)
	a1, a2, a3 := &ctxA{id: 1}, &ctxA{id: 2}, &ctxA{id: 3}
	for _, a := range []*ctxA{a1, a2, a3} {
		require.NoError(t, f.AddAvailableDependency(a))
	}

	assert.True(t, f.RemoveAvailableDependency(a1))
	assert.False(t, f.RemoveAvailableDependency(a1), "second removal is a benign no-op")
	assert.False(t, f.RemoveAvailableDependency(&ctxA{id: 2}), "equal value but different identity")

	instances, err := f.Process()
	require.NoError(t, err)
	require.Len(t, instances, 1)
	b := instances[0].Behavior.(*pairBehavior)
	assert.Same(t, a2, b.first)
	assert.Same(t, a3, b.second)
}

func TestFactory_HoldsByIdentity(t *testing.T) {
	f := newPairFactory(t)
	a1 := &ctxA{id: 1}
	require.NoError(t, f.AddAvailableDependency(a1))

	assert.True(t, f.Holds(a1))
	assert.False(t, f.Holds(&ctxA{id: 1}))
	assert.False(t, f.Holds(nil))

	require.NoError(t, f.AddAvailableDependency(&ctxA{id: 2}))
	_, err := f.Process()
	require.NoError(t, err)
	assert.False(t, f.Holds(a1), "reserved contexts leave the inventory")
}

func TestFactory_ProcessAssemblesAllPendingSets(t *testing.T) {
	m := newMixedFactory(t)
	for i := range 3 {
		require.NoError(t, m.AddAvailableDependency(&ctxA{id: i}))
	}
	for i := range 5 {
		require.NoError(t, m.AddAvailableDependency(&ctxU{id: i}))
	}

	instances, err := m.Process()
	require.NoError(t, err)
	assert.Len(t, instances, 3)
	assert.Equal(t, 0, m.NumberOfPendingInstantiations())
	assert.Equal(t, 0, m.Available(reflect.TypeFor[*ctxA]()))
	assert.Equal(t, 2, m.Available(reflect.TypeFor[*ctxU]()))

	seen := map[any]bool{}
	for _, inst := range instances {
		for _, ctx := range inst.Contexts {
			assert.False(t, seen[ctx], "a context serves at most one instance")
			seen[ctx] = true
		}
	}
}

func TestFactory_ProcessWithNothingPending(t *testing.T) {
	f := newPairFactory(t)
	instances, err := f.Process()
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestFactory_PureSelfCreatorIsUnbounded(t *testing.T) {
	f := newSelfCreatorFactory(t, true)

	assert.Equal(t, Unbounded, f.NumberOfPendingInstantiations())
	assert.True(t, f.CanInstantiate())
	assert.Empty(t, f.RequiredDependencyTypes())

	for range 3 {
		instances, err := f.Process()
		require.NoError(t, err)
		require.Len(t, instances, 1)
		assert.Equal(t, Unbounded, f.NumberOfPendingInstantiations())

		inst := instances[0]
		made := inst.Behavior.(*selfCreator).made
		assert.Same(t, made, inst.Contexts["b"])
		assert.True(t, inst.IsCreated("b"))
	}
}

func TestFactory_UnfulfilledSelfCreatedSlotAborts(t *testing.T) {
	f := newSelfCreatorFactory(t, false)

	instances, err := f.Process()
	require.Error(t, err)
	assert.Nil(t, instances)
	assert.True(t, IsConstructionError(err))
	assert.ErrorIs(t, err, ErrUnfulfilled)

	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "b", ce.Slot)
}

func TestFactory_FailedProcessRestoresInventory(t *testing.T) {
	calls := 0
	f, err := NewFactory(reflect.TypeFor[*pairBehavior](), func(a *Assembly) (any, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("boom")
		}
		return &pairBehavior{}, nil
	}, []Slot{Require[*ctxA]("a")})
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, f.AddAvailableDependency(&ctxA{id: i}))
	}

	instances, err := f.Process()
	require.Error(t, err)
	assert.Nil(t, instances, "no partial result")
	assert.Equal(t, 3, f.NumberOfPendingInstantiations(), "reserved contexts are returned")
}

func TestFactory_ProvideValidatesSlot(t *testing.T) {
	f, err := NewFactory(reflect.TypeFor[*selfCreator](), func(a *Assembly) (any, error) {
		if err := a.Provide("missing", &ctxB{}); !errors.Is(err, ErrUnknownSlot) {
			return nil, errors.New("expected unknown slot")
		}
		if err := a.Provide("b", &ctxA{}); !errors.Is(err, ErrSlotType) {
			return nil, errors.New("expected slot type error")
		}
		return &selfCreator{}, a.Provide("b", &ctxB{})
	}, []Slot{Create[*ctxB]("b")})
	require.NoError(t, err)

	instances, err := f.Process()
	require.NoError(t, err)
	assert.Len(t, instances, 1)
}

func TestNewFactory_RejectsDuplicateSlotNames(t *testing.T) {
	_, err := NewFactory(reflect.TypeFor[*pairBehavior](), func(*Assembly) (any, error) { return nil, nil },
		[]Slot{Require[*ctxA]("x"), Create[*ctxB]("x")})
	assert.Error(t, err)
}
