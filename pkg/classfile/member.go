package classfile

import "fmt"

// member reads one field_info or method_info record.
func (d *decoder) member() (Member, error) {
	var m Member
	var err error
	if m.AccessFlags, err = d.c.ReadU16(); err != nil {
		return m, err
	}

	nameOff := d.c.Offset()
	if m.NameIndex, err = d.c.ReadU16(); err != nil {
		return m, err
	}
	if m.Name, err = d.pool.Utf8(m.NameIndex); err != nil {
		return m, within("name", locate(err, nameOff))
	}

	descOff := d.c.Offset()
	if m.DescriptorIndex, err = d.c.ReadU16(); err != nil {
		return m, err
	}
	if m.Descriptor, err = d.pool.Utf8(m.DescriptorIndex); err != nil {
		return m, within("descriptor", locate(err, descOff))
	}

	if m.Attributes, err = d.attributes(); err != nil {
		return m, err
	}
	return m, nil
}

func (d *decoder) fields() ([]FieldInfo, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, within("fields_count", err)
	}
	fields := make([]FieldInfo, n)
	for i := range fields {
		m, err := d.member()
		if err != nil {
			return nil, within(fmt.Sprintf("fields[%d]", i), err)
		}
		fields[i] = FieldInfo{Member: m}
	}
	return fields, nil
}

func (d *decoder) methods() ([]MethodInfo, error) {
	n, err := d.c.ReadU16()
	if err != nil {
		return nil, within("methods_count", err)
	}
	methods := make([]MethodInfo, n)
	for i := range methods {
		m, err := d.member()
		if err != nil {
			return nil, within(fmt.Sprintf("methods[%d]", i), err)
		}
		methods[i] = MethodInfo{Member: m}
	}
	return methods, nil
}
