/*
Package sqlbind runs mapped SQL statements against database/sql, binding the
parameters of each statement from a single argument of any shape and writing
database generated keys back into that argument.

# Statements

A [Statement] pairs final SQL text with an ordered list of [BindSpec]
values, one per placeholder. Each BindSpec names the property of the
argument that supplies the value at its position:

	insert := sqlbind.MustStatement("insertPerson", sqlbind.Insert,
		"INSERT INTO person (name, team) VALUES (?, ?)",
		sqlbind.WithBinds(
			sqlbind.BindSpec{Property: "name"},
			sqlbind.BindSpec{Property: "team"},
		),
		sqlbind.WithKeyProperties("id"),
		sqlbind.WithKeyGenerator(sqlbind.KeyGeneratorLastInsertID),
	)

Statements can also be loaded from a YAML mapper file with [LoadMapper].

# Arguments

The argument of an execution is classified once:

 1. nil, a nil pointer or a nil map is null. Every property resolves to nil
    and is bound using the parameter's null type.
 2. A value whose type has a coercion strategy in the [Registry] is atomic.
    It is never decomposed: every property name resolves to the value
    itself.
 3. Anything else is structured. Maps with string keys are read by key.
    Structs, and pointers to structs, are read by `db` tag, then field name.
    Dotted names such as "address.id" reach into nested values.

Generated keys and OUT parameters are only written to properties that can
be set: map entries and fields of structs passed by pointer. Properties the
argument does not have are skipped.

# Execution

An [Executor] prepares the statement, binds the argument, executes it and
closes the prepared statement before returning, whatever the outcome:

	exec := sqlbind.NewExecutor(db, nil)
	p := &Person{Name: "Fred", Team: "engineering"}
	n, err := exec.Update(ctx, insert, p) // p.ID now holds the generated key

Failures are returned as [*Error] values categorised by [ErrorKind].
*/
package sqlbind
