package employee

import "encoding/json"

// Field は部分更新における 1 属性分の変更指示です。
// ゼロ値は Unchanged を表し、SetTo で値の設定を表します。
type Field[T any] struct {
	value T
	set   bool
}

// Unchanged は変更しないことを表す Field を返します。
func Unchanged[T any]() Field[T] {
	return Field[T]{}
}

// SetTo は v を設定することを表す Field を返します。
func SetTo[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get は設定値と、設定されているかどうかを返します。
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet は値が設定されているかを返します。
func (f Field[T]) IsSet() bool {
	return f.set
}

// UnmarshalJSON はキーが存在した時点で SetTo として扱います。null も SetTo(ゼロ値) になります。
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.value = v
	f.set = true
	return nil
}

// Patch は社員の部分更新内容です。
type Patch struct {
	Nom         Field[string]
	Prenom      Field[string]
	Telephone   Field[*string]
	Adresse     Field[*string]
	Departement Field[string]
	Statut      Field[string]
	UserID      Field[*int64]
}

// IsEmpty は変更対象の属性が一つもないかを返します。
func (p Patch) IsEmpty() bool {
	return !p.Nom.IsSet() &&
		!p.Prenom.IsSet() &&
		!p.Telephone.IsSet() &&
		!p.Adresse.IsSet() &&
		!p.Departement.IsSet() &&
		!p.Statut.IsSet() &&
		!p.UserID.IsSet()
}

// normalize は設定された値を検証・正規化したコピーを返します。
func (p Patch) normalize() (Patch, error) {
	out := p
	for _, f := range []*Field[string]{&out.Nom, &out.Prenom, &out.Departement} {
		if v, ok := f.Get(); ok {
			trimmed, err := requireText(v)
			if err != nil {
				return Patch{}, err
			}
			*f = SetTo(trimmed)
		}
	}
	if v, ok := out.Statut.Get(); ok {
		statut, err := normalizeStatut(v)
		if err != nil {
			return Patch{}, err
		}
		out.Statut = SetTo(statut)
	}
	if v, ok := out.Telephone.Get(); ok {
		out.Telephone = SetTo(normalizeOptional(v))
	}
	if v, ok := out.Adresse.Get(); ok {
		out.Adresse = SetTo(normalizeOptional(v))
	}
	if v, ok := out.UserID.Get(); ok && v != nil && *v <= 0 {
		return Patch{}, ErrInvalidID
	}
	return out, nil
}

// applyTo は設定された属性のみを e に反映します。UserID は呼び出し側で扱います。
func (p Patch) applyTo(e *Employee) {
	if v, ok := p.Nom.Get(); ok {
		e.Nom = v
	}
	if v, ok := p.Prenom.Get(); ok {
		e.Prenom = v
	}
	if v, ok := p.Telephone.Get(); ok {
		e.Telephone = v
	}
	if v, ok := p.Adresse.Get(); ok {
		e.Adresse = v
	}
	if v, ok := p.Departement.Get(); ok {
		e.Departement = v
	}
	if v, ok := p.Statut.Get(); ok {
		e.Statut = v
	}
}
