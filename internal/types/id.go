// README: Common ID value type used across modules.
package types

type ID string
